// Package web holds the server-rendered pages embedded in the binary.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

//go:embed templates/*.html static/*
var content embed.FS

// Pages every page template, keyed by the name handlers render
var Pages = []string{
	"home",
	"login",
	"terminos",
	"privacidad",
	"checkout",
	"checkout_success",
	"dashboard",
	"creditos",
	"historial",
	"api_keys",
	"perfil",
}

// Page common data of every rendered page
type Page struct {
	Title   string
	AppName string
	Path    string
	BotURL  string
	User    *User
	Error   string
	Data    interface{}
}

// User the signed-in visitor shown in the navigation
type User struct {
	ID      string
	Email   string
	Credits int
	Plan    string
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses the layout once per page so each page owns its "content" block
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(Pages))}
	for _, name := range Pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(content, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, page *Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", page)
}

// Static serves the embedded stylesheet and scripts
func Static() http.FileSystem {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

var kindLabels = map[string]string{
	"purchase":     "Compra",
	"consumption":  "Consumo",
	"bonus":        "Bonus",
	"refund":       "Reembolso",
	"subscription": "Suscripción",
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("02/01/2006 15:04")
	},
	"signed": func(n int) string {
		if n > 0 {
			return fmt.Sprintf("+%d", n)
		}
		return fmt.Sprintf("%d", n)
	},
	"kind": func(k string) string {
		if l, ok := kindLabels[k]; ok {
			return l
		}
		return k
	},
	"price": func(p float64) string {
		if p == float64(int64(p)) {
			return fmt.Sprintf("%d€", int64(p))
		}
		return strings.Replace(fmt.Sprintf("%.2f€", p), ".", ",", 1)
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"join": strings.Join,
	"add": func(a, b int) int {
		return a + b
	},
}
