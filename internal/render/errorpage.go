package render

import (
	"html/template"
	"net/http"
)

var errorPageTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
  <head><title>Error</title></head>
  <body>
    <h1>Server Error</h1>
    <p>An error occurred while processing your request.</p>
    {{- if .Show}}
    <pre>{{.Err}}
{{.Stack}}</pre>
    {{- end}}
  </body>
</html>
`))

// ErrorPage writes a 500 response with a minimal HTML page.
// The error and stack are included only when showStack is set.
func ErrorPage(w http.ResponseWriter, err error, stack []byte, showStack bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)

	data := struct {
		Show  bool
		Err   string
		Stack string
	}{Show: showStack}
	if showStack {
		if err != nil {
			data.Err = err.Error()
		}
		data.Stack = string(stack)
	}
	_ = errorPageTemplate.Execute(w, data)
}
