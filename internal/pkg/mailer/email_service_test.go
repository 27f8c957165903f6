package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderNoticeEscapes(t *testing.T) {
	out := RenderNotice("TheHungryUnicorn", "Booking confirmed", `Reference <ABC1234> & "friends"`)

	assert.Contains(t, out, "<h2>Booking confirmed</h2>")
	assert.Contains(t, out, "&lt;ABC1234&gt; &amp; &#34;friends&#34;")
	assert.Contains(t, out, "TheHungryUnicorn")
}
