package main

import "github.com/LoayTarek5/Web-Scraper/cmd"

func main() {
	cmd.Execute()
}
