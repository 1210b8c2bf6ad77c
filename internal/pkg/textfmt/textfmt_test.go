package textfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;&amp;&quot;&#39;&lt;/b&gt;", EscapeHTML(`<b>&"'</b>`))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "пустой текст",
			in:   "",
			want: "",
		},
		{
			name: "жирный",
			in:   "hello **world**",
			want: "hello <strong>world</strong>",
		},
		{
			name: "курсив",
			in:   "__emphasis__",
			want: "<em>emphasis</em>",
		},
		{
			name: "код",
			in:   "run `go vet` now",
			want: "run <code>go vet</code> now",
		},
		{
			name: "зачеркнутый",
			in:   "~~old~~ new",
			want: "<del>old</del> new",
		},
		{
			name: "markdown-ссылка",
			in:   "see [docs](https://example.com/a)",
			want: `see <a href="https://example.com/a" target="_blank">docs</a>`,
		},
		{
			name: "голый URL оборачивается",
			in:   "go to https://example.com now",
			want: `go to <a href="https://example.com" target="_blank">https://example.com</a> now`,
		},
		{
			name: "www получает схему",
			in:   "www.example.com",
			want: `<a href="http://www.example.com" target="_blank">www.example.com</a>`,
		},
		{
			name: "URL внутри готовой ссылки не оборачивается повторно",
			in:   "[x](https://example.com)",
			want: `<a href="https://example.com" target="_blank">x</a>`,
		},
		{
			name: "HTML внутри разметки экранируется",
			in:   "**<script>**",
			want: "<strong>&lt;script&gt;</strong>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcde", Truncate("abcdefg", 5))
	// Границы рун, не байтов.
	assert.Equal(t, "приве", Truncate("приветствие", 5))
}
