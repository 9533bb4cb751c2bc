package web

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed public/*.html
var publicFS embed.FS

var (
	loginPage    = mustReadPage("public/login.html")
	registerPage = mustReadPage("public/register.html")
)

// Templates は埋め込みテンプレートを解析して返します。
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

func mustReadPage(name string) []byte {
	data, err := fs.ReadFile(publicFS, name)
	if err != nil {
		panic(err)
	}
	return data
}

// message は結果メッセージと復帰用リンクです。
type message struct {
	Text     string
	LinkHref string
	LinkText string
}

func renderMessage(c *gin.Context, status int, msg message) {
	c.HTML(status, "message.html", msg)
}
