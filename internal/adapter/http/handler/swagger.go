package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// openAPISpec is the document served under /swagger/spec; specETag is its
// strong validator.
var (
	openAPISpec []byte
	specETag    string
)

// SetSwaggerSpec installs the OpenAPI document. nil unloads it.
func SetSwaggerSpec(spec []byte) {
	openAPISpec = spec
	specETag = ""
	if spec != nil {
		sum := sha256.Sum256(spec)
		specETag = `"` + hex.EncodeToString(sum[:8]) + `"`
	}
}

// SwaggerSpec serves the raw OpenAPI YAML, honouring If-None-Match.
func SwaggerSpec(c *gin.Context) {
	if openAPISpec == nil {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Header("ETag", specETag)
	c.Header("Cache-Control", "no-cache")
	if c.GetHeader("If-None-Match") == specETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", openAPISpec)
}

func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Value Ledger API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/swagger/spec',
      dom_id: '#swagger-ui',
      persistAuthorization: true,
      requestInterceptor: function (req) {
        req.headers['X-Request-ID'] = req.headers['X-Request-ID'] || crypto.randomUUID();
        return req;
      }
    });
  </script>
</body>
</html>`
