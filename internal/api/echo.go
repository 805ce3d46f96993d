package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const bannerWidth = 50

// EchoOptions controls what the client prints when an echo writer is set.
// The response is always printed; Request adds the outgoing body first.
type EchoOptions struct {
	Request     bool
	OnlyContent bool
}

func banner(title string) string {
	return "\n" + strings.Repeat("=", bannerWidth) + " " + title + " " + strings.Repeat("=", bannerWidth)
}

func footer() string {
	return strings.Repeat("=", 2*bannerWidth+8)
}

func (c *Client) echoRequest(body []byte) {
	fmt.Fprintln(c.echoOut, banner("REQUEST"))
	fmt.Fprintf(c.echoOut, "POST %s\n", c.endpoint)
	fmt.Fprintln(c.echoOut, prettyJSON(body))
	fmt.Fprintln(c.echoOut, footer())
}

func (c *Client) echoResponse(raw []byte, resp *ChatCompletionResponse) {
	fmt.Fprintln(c.echoOut, banner("RESPONSE"))
	if c.echo.OnlyContent {
		for _, choice := range resp.Choices {
			fmt.Fprintln(c.echoOut, choice.Message.Content)
		}
	} else {
		fmt.Fprintln(c.echoOut, prettyJSON(raw))
	}
	fmt.Fprintln(c.echoOut, footer())
}

// prettyJSON re-indents a JSON document with sorted object keys.
// Input that does not parse is returned unchanged.
func prettyJSON(raw []byte) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return string(raw)
	}
	return strings.TrimRight(buf.String(), "\n")
}
