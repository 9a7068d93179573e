// Package server exposes a decoded document over a read-only HTTP API.
package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/tree"
)

const mimeCBOR = "application/cbor"

type Server struct {
	doc  *blend.Document
	name string
	proj *tree.Projector
}

// New serves doc under the display name name. The document must not be
// modified while the server runs.
func New(doc *blend.Document, name string, opts tree.Options) *Server {
	return &Server{doc: doc, name: name, proj: tree.New(doc, opts)}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/api/info", s.handleInfo)
	e.GET("/api/blocks", s.handleBlocks)
	e.GET("/api/schema", s.handleSchema)
	e.GET("/api/schema/:struct", s.handleStruct)
	e.GET("/api/glob", s.handleGlobal)
	e.GET("/api/main", s.handleMain)
	e.GET("/api/main/:key", s.handleKey)
	e.GET("/api/main/:key/:name", s.handleObject)
}

type infoResponse struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Endian      string      `json:"endian"`
	PointerByte string      `json:"pointer_byte"`
	Stats       blend.Stats `json:"stats"`
}

func (s *Server) handleInfo(c *echo.Context) error {
	info := infoResponse{
		Name:        s.name,
		Version:     s.doc.Version,
		PointerByte: string(rune(s.doc.PointerByte)),
		Stats:       s.doc.Stats(),
	}
	if s.doc.Order != nil {
		info.Endian = s.doc.Order.String()
	}
	return writeJSON(c, http.StatusOK, info)
}

type blockResponse struct {
	Code   string `json:"code"`
	Addr   string `json:"addr"`
	SDNA   int    `json:"sdna"`
	Struct string `json:"struct,omitempty"`
	Count  int    `json:"count"`
	Size   int    `json:"size"`
}

func (s *Server) handleBlocks(c *echo.Context) error {
	code := strings.ToUpper(c.QueryParam("code"))
	out := make([]blockResponse, 0, len(s.doc.Blocks))
	for _, b := range s.doc.Blocks {
		trimmed := strings.TrimRight(b.Code, "\x00")
		if code != "" && trimmed != code {
			continue
		}
		r := blockResponse{Code: trimmed, Addr: b.Addr.String(), SDNA: b.SDNA, Count: b.Count, Size: len(b.Data)}
		if b.SDNA > 0 && s.doc.Schema != nil {
			if st, err := s.doc.Schema.At(b.SDNA); err == nil {
				r.Struct = st.Name
			}
		}
		out = append(out, r)
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleSchema(c *echo.Context) error {
	names := make([]string, len(s.doc.Schema.Structs))
	for i, st := range s.doc.Schema.Structs {
		names[i] = st.Name
	}
	return writeJSON(c, http.StatusOK, names)
}

func (s *Server) handleStruct(c *echo.Context) error {
	name := c.Param("struct")
	st, ok := s.doc.Schema.Lookup(name)
	if !ok {
		if i, err := strconv.Atoi(name); err == nil {
			st, err = s.doc.Schema.At(i)
			ok = err == nil
		}
	}
	if !ok {
		return writeNotFound(c, "no struct "+strconv.Quote(name))
	}
	return s.writeTree(c, tree.Struct(st))
}

func (s *Server) handleGlobal(c *echo.Context) error {
	if s.doc.Global == nil {
		return writeNotFound(c, "document has no global block")
	}
	return s.writeTree(c, s.proj.Object(s.doc.Global))
}

func (s *Server) handleMain(c *echo.Context) error {
	counts := tree.NewMap(len(s.doc.Main.Keys()))
	for _, key := range s.doc.Main.Keys() {
		counts.Set(key, len(s.doc.Main.Get(key)))
	}
	return writeJSON(c, http.StatusOK, counts)
}

func (s *Server) handleKey(c *echo.Context) error {
	key := c.Param("key")
	entries := s.doc.Main.Get(key)
	if len(entries) == 0 {
		return writeNotFound(c, "no objects under "+strconv.Quote(key))
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return writeJSON(c, http.StatusOK, names)
}

func (s *Server) handleObject(c *echo.Context) error {
	key, name := c.Param("key"), c.Param("name")
	o, ok := s.doc.Lookup(key, name)
	if !ok {
		return writeNotFound(c, "no "+key+" named "+strconv.Quote(name))
	}
	return s.writeTree(c, s.proj.Object(o))
}

// writeTree encodes v in the format named by the format query parameter.
func (s *Server) writeTree(c *echo.Context, v any) error {
	format, err := tree.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	data, err := tree.Marshal(v, format)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	switch format {
	case tree.YAML:
		return c.Blob(http.StatusOK, "application/yaml", data)
	case tree.CBOR:
		return c.Blob(http.StatusOK, mimeCBOR, data)
	default:
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}

func writeJSON(c *echo.Context, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return c.Blob(status, echo.MIMEApplicationJSON, data)
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg)
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{"error": errorBody{Message: msg, Type: errType}})
}
