package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"markup", "<p>Hello</p><p>World</p>", "Hello World"},
		{"collapses whitespace", "<div>a\n\n   b\t\tc</div>", "a b c"},
		{"skips script and style", "<style>p{}</style><script>x()</script><b>kept</b>", "kept"},
		{"line breaks", "one<br>two", "one two"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.body))
		})
	}
}

func TestLinks(t *testing.T) {
	body := `<p>Confirm <a href="https://example.com/confirm?t=1">here</a>
		or <a href="#top">top</a> <a href="">empty</a>
		<a href=" mailto:help@example.com ">mail</a></p><a>no href</a>`

	assert.Equal(t, []string{
		"https://example.com/confirm?t=1",
		"mailto:help@example.com",
	}, Links(body))
}

func TestLinks_None(t *testing.T) {
	assert.Empty(t, Links("just text"))
}
