package docs

import (
	"bytes"
	"html/template"
)

// RedocScript is the ReDoc bundle the page loads.
const RedocScript = "https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"

var pageTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc spec-url="{{.DocumentURL}}" suppress-warnings="true"></redoc>
    <script src="{{.Script}}"></script>
  </body>
</html>
`))

// Page renders the HTML page that loads the document from documentURL.
func Page(title, documentURL string) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title       string
		Script      string
		DocumentURL string
	}{title, RedocScript, documentURL})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
