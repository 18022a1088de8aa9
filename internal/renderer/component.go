package renderer

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/txtof/internal/document"
)

// Component exposes a rendered document as a templ component, so it can be
// served with templ.Handler or nested inside other components.
func (r *Renderer) Component(doc *document.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.WriteDocument(w, doc)
	})
}

// Bytes wraps already rendered output as a templ component.
func Bytes(output []byte) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := w.Write(output)
		return err
	})
}

// PreviewPage wraps body in a standalone HTML page. When reloadPath is not
// empty the page opens a websocket on that path and reloads itself whenever a
// "reload" message arrives.
func PreviewPage(title string, body templ.Component, reloadPath string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8"/>
    <title>`+templ.EscapeString(title)+` - txtof preview</title>
    <style>
        .txtof .row { display: flex; gap: 1rem; margin-bottom: 1rem; }
        .txtof .col { flex: 1; }
        .txtof .page { border-bottom: 1px solid #ddd; padding: 1rem 0; }
    </style>
</head>
<body>
`); err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		if reloadPath != "" {
			if _, err := io.WriteString(w, `<script>
    (function () {
        const proto = window.location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + window.location.host + '`+templ.EscapeString(reloadPath)+`');
        ws.onmessage = function (event) {
            const message = JSON.parse(event.data);
            if (message.type === 'reload') {
                window.location.reload();
            }
        };
    })();
</script>
`); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}
