package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

const catalogPage = `<!DOCTYPE html>
<html>
<head>
  <title>All products | Books to Scrape</title>
  <meta name="description" content="A demo bookstore for scraping practice">
</head>
<body>
  <article class="product_pod">
    <p class="star-rating Three"></p>
    <h3><a title="A Light in the Attic" href="a-light-in-the-attic_1000/index.html">A Light in the ...</a></h3>
    <p class="price_color">£51.77</p>
    <p class="availability">
        In stock
    </p>
  </article>
  <article class="product_pod">
    <p class="star-rating One"></p>
    <h3><a title="Tipping the Velvet" href="tipping-the-velvet_999/index.html">Tipping the Velvet</a></h3>
    <p class="price_color">£53.74</p>
    <p class="availability">In stock</p>
  </article>
</body>
</html>`

func payload(body string) scraper.Payload {
	return scraper.Payload{URL: "http://books.toscrape.com/", Body: []byte(body)}
}

func TestExtractCatalogPage(t *testing.T) {
	t.Parallel()

	got, err := New().Extract(payload(catalogPage))
	require.NoError(t, err)

	assert.Equal(t, "All products | Books to Scrape", got.Title)
	assert.Equal(t, "A demo bookstore for scraping practice", got.Fields["description"])
	assert.Equal(t, "2", got.Fields["book_count"])
	assert.Equal(t, "£51.77", got.Fields["book_a_light_in_the_attic_price"])
	assert.Equal(t, "In stock", got.Fields["book_a_light_in_the_attic_availability"])
	assert.Equal(t, "Three", got.Fields["book_a_light_in_the_attic_rating"])
	assert.Equal(t, "£53.74", got.Fields["book_tipping_the_velvet_price"])
	assert.Contains(t, got.Text, "In stock")
}

func TestExtractPlainPage(t *testing.T) {
	t.Parallel()

	got, err := New().Extract(payload("<html><head><title>Hello</title></head><body><p>Some   text\nhere</p></body></html>"))
	require.NoError(t, err)

	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "Some text here", got.Text)
	assert.Nil(t, got.Fields)
}

func TestExtractMissingTitle(t *testing.T) {
	t.Parallel()

	got, err := New().Extract(payload("<html><body><p>no title</p></body></html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no title")
	assert.Equal(t, "no title", got.Text, "recovered text comes back even on error")
}

func TestExtractBookDetailsDisabled(t *testing.T) {
	t.Parallel()

	e := New()
	e.BookDetails = false
	got, err := e.Extract(payload(catalogPage))
	require.NoError(t, err)
	assert.NotContains(t, got.Fields, "book_count")
	assert.Equal(t, "A demo bookstore for scraping practice", got.Fields["description"])
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_light_in_the_attic", slugify("A Light in the Attic"))
	assert.Equal(t, "its_only_the_himalayas", slugify("It's Only the Himalayas!"))
	assert.Equal(t, "1984", slugify("1984"))
}
