package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeparatesCDATAFromText(t *testing.T) {
	doc, err := Parse(`<a><b>plain &amp; simple</b><c>
  <![CDATA[<raw>]]>
</c><d>x<![CDATA[y]]></d></a>`)
	require.NoError(t, err)

	b := doc.First("a").First("b")
	assert.Equal(t, "plain & simple", b.Text)
	assert.Empty(t, b.CDATA)

	c := doc.First("a").First("c")
	assert.Equal(t, "<raw>", c.CDATA)
	assert.Empty(t, c.Text, "whitespace around CDATA is not text")

	d := doc.First("a").First("d")
	assert.Equal(t, "x", d.Text)
	assert.Equal(t, "y", d.CDATA)
	v, ok := d.Value()
	assert.True(t, ok)
	assert.Equal(t, "y", v)
}

func TestParseKeepsAttributesApartFromChildren(t *testing.T) {
	doc, err := Parse(`<r href="attr.html" xmlns:adlcp="urn:adlcp"><href>child.html</href></r>`)
	require.NoError(t, err)

	r := doc.First("r")
	href, ok := r.Attr("href")
	require.True(t, ok)
	assert.Equal(t, "attr.html", href)
	assert.Equal(t, "urn:adlcp", r.Attrs["xmlns:adlcp"])

	child, ok := r.First("href").Value()
	require.True(t, ok)
	assert.Equal(t, "child.html", child)
}

func TestSelectFollowsRepeatedSiblings(t *testing.T) {
	doc, err := Parse(`<m><rs><r id="1"/><r id="2"/></rs><rs><r id="3"/></rs></m>`)
	require.NoError(t, err)

	var ids []string
	for _, n := range doc.Select("m", "rs", "r") {
		id, _ := n.Attr("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Nil(t, doc.Select("m", "nope", "r"))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{"", "   ", "<manifest><resources></manifest>", "not xml at all"} {
		_, err := Parse(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestNilNodeAccessorsAreSafe(t *testing.T) {
	var n *Node
	assert.Nil(t, n.First("x").First("y"))
	_, ok := n.Attr("href")
	assert.False(t, ok)
	_, ok = n.Value()
	assert.False(t, ok)
	assert.Empty(t, n.Select("a"))
}
