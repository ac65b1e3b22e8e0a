package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse-dev/gatehouse/pkg/devicecode"
)

const activatePageHTML = `<!DOCTYPE html>
<html>
<head><title>Activate your device</title></head>
<body>
<h1>Activate your device</h1>
<form action="/activate" method="get">
  <label for="user_code">Enter the code shown on your device</label>
  <input id="user_code" name="user_code" placeholder="XXXX-XXXX" autofocus>
  <button type="submit">Continue</button>
</form>
</body>
</html>`

const activatedPageHTML = `<!DOCTYPE html>
<html>
<head><title>Device activated</title></head>
<body>
<h1>Device activated</h1>
<p>You can now return to your device.</p>
</body>
</html>`

const successPageHTML = `<!DOCTYPE html>
<html>
<head><title>Success</title></head>
<body>
<h1>Success</h1>
<p>The operation completed. You can close this window.</p>
</body>
</html>`

func (s *Server) registerDeviceRoutes(r *gin.Engine) {
	r.GET("/activate", s.handleActivate)
	r.GET("/activated", s.handleActivated)
	r.GET("/", s.handleRoot)
}

// handleActivate orchestrates device activation: no code shows the entry
// form, a well-formed code redirects into verification, and a malformed
// code is a plain client error rather than a silent redirect.
func (s *Server) handleActivate(c *gin.Context) {
	code := c.Query("user_code")

	result, err := devicecode.Resolve(code)
	if err != nil {
		var malformed *devicecode.ErrMalformedCode
		if errors.As(err, &malformed) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_user_code",
				"error_description": malformed.Error(),
			})
			return
		}
		respondError(c, http.StatusInternalServerError, "activation failed", s.logger)
		return
	}

	if result.IsRedirect {
		logger := requestLogger(c, s.logger)
		logger.Info().Str("user_code", code).Msg("device activation redirect")
		c.Redirect(http.StatusFound, result.Destination)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(activatePageHTML))
}

func (s *Server) handleActivated(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(activatedPageHTML))
}

func (s *Server) handleRoot(c *gin.Context) {
	if _, ok := c.GetQuery("success"); ok {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(successPageHTML))
		return
	}
	c.Redirect(http.StatusFound, "/activate")
}
