// Package preview serves rendered codes and the standalone generator over
// HTTP so they can be viewed in a browser.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vvatanabe/shipcode/internal/constant"
	"github.com/vvatanabe/shipcode/internal/generator"
	"github.com/vvatanabe/shipcode/internal/render"
)

// CardService is the part of the generator the server drives.
type CardService interface {
	Cards() []generator.Card
	Card(id int) (generator.Card, error)
	SetText(id int, text string) error
	Flush(id int) error
	Toggle(id int) (generator.Card, error)
	ThemeColor() render.RGBColor
	SetThemeColor(hex string) (render.RGBColor, error)
}

type Options struct {
	Addr         string
	AllowOrigins []string
	Style        render.Style
	Logger       *slog.Logger
}

func WithAddr(addr string) func(*Options) {
	return func(o *Options) {
		o.Addr = addr
	}
}

func WithAllowOrigins(origins ...string) func(*Options) {
	return func(o *Options) {
		o.AllowOrigins = origins
	}
}

func WithStyle(style render.Style) func(*Options) {
	return func(o *Options) {
		o.Style = style
	}
}

func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

type Server struct {
	cards  CardService
	style  render.Style
	logger *slog.Logger
	engine *gin.Engine
	srv    *http.Server
}

func New(cards CardService, optFns ...func(*Options)) *Server {
	o := &Options{
		Addr:         constant.DefaultPreviewAddr,
		AllowOrigins: []string{"*"},
		Style:        render.GeneratorStyle,
		Logger:       slog.Default(),
	}
	for _, opt := range optFns {
		opt(o)
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cards:  cards,
		style:  o.Style,
		logger: o.Logger,
	}
	s.engine = s.routes(o.AllowOrigins)
	s.srv = &http.Server{
		Addr:              o.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())
	router.Use(cors.New(corsConfig(origins)))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	{
		api.GET("/codes/:kind", s.renderCode)

		cards := api.Group("/cards")
		{
			cards.GET("", s.listCards)
			cards.PUT("/:id/text", s.setCardText)
			cards.POST("/:id/toggle", s.toggleCard)
			cards.GET("/:id/code", s.cardCode)
		}
		api.GET("/theme", s.getTheme)
		api.PUT("/theme", s.setTheme)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("preview request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("preview server listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type cardResponse struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Kind   string `json:"kind"`
	Failed bool   `json:"failed"`
	Code   string `json:"code"`
}

func toCardResponse(c generator.Card) cardResponse {
	return cardResponse{
		ID:     c.ID,
		Text:   c.Text,
		Kind:   c.Kind.String(),
		Failed: c.Failed,
		Code:   "/api/cards/" + strconv.Itoa(c.ID) + "/code",
	}
}

type textRequest struct {
	Text *string `json:"text" binding:"required"`
}

type themeRequest struct {
	Color string `json:"color" binding:"required"`
}

type themeResponse struct {
	Color   string         `json:"color"`
	Palette render.Palette `json:"palette"`
}

func (s *Server) renderCode(c *gin.Context) {
	kind, err := render.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ink := s.cards.ThemeColor()
	if v := c.Query("color"); v != "" {
		ink, err = render.ParseHexColor(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
	}
	artifact, err := render.Render(c.Query("text"), kind, ink, s.style)
	if err != nil {
		s.logger.Warn("showing placeholder for unrenderable code", "kind", kind, "error", err)
		writeArtifact(c, http.StatusUnprocessableEntity, render.Placeholder(render.InvalidInputMessage, ink, s.style))
		return
	}
	if artifact == nil {
		c.Status(http.StatusNoContent)
		return
	}
	writeArtifact(c, http.StatusOK, artifact)
}

func (s *Server) listCards(c *gin.Context) {
	cards := s.cards.Cards()
	res := make([]cardResponse, 0, len(cards))
	for _, card := range cards {
		res = append(res, toCardResponse(card))
	}
	c.JSON(http.StatusOK, res)
}

// setCardText stores the text; the rendering follows after the debounce
// window unless flush=true is given.
func (s *Server) setCardText(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := s.cards.SetText(id, *req.Text); err != nil {
		s.cardError(c, err)
		return
	}
	status := http.StatusAccepted
	if flush, _ := strconv.ParseBool(c.Query("flush")); flush {
		if err := s.cards.Flush(id); err != nil {
			s.cardError(c, err)
			return
		}
		status = http.StatusOK
	}
	card, err := s.cards.Card(id)
	if err != nil {
		s.cardError(c, err)
		return
	}
	c.JSON(status, toCardResponse(card))
}

func (s *Server) toggleCard(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	card, err := s.cards.Toggle(id)
	if err != nil {
		s.cardError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCardResponse(card))
}

func (s *Server) cardCode(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	card, err := s.cards.Card(id)
	if err != nil {
		s.cardError(c, err)
		return
	}
	if card.Artifact == nil {
		c.Status(http.StatusNoContent)
		return
	}
	status := http.StatusOK
	if card.Failed {
		status = http.StatusUnprocessableEntity
	}
	writeArtifact(c, status, card.Artifact)
}

func (s *Server) getTheme(c *gin.Context) {
	color := s.cards.ThemeColor()
	c.JSON(http.StatusOK, themeResponse{Color: color.Hex(), Palette: render.NewPalette(color)})
}

func (s *Server) setTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	color, err := s.cards.SetThemeColor(req.Color)
	if err != nil {
		s.cardError(c, err)
		return
	}
	c.JSON(http.StatusOK, themeResponse{Color: color.Hex(), Palette: render.NewPalette(color)})
}

func (s *Server) cardError(c *gin.Context, err error) {
	var (
		notFound     generator.CardNotFoundError
		invalidColor generator.InvalidColorError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.As(err, &invalidColor):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, generator.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
	default:
		s.logger.Error("preview request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An unexpected error occurred"})
	}
}

func cardID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "card id must be a number"})
		return 0, false
	}
	return id, true
}

func writeArtifact(c *gin.Context, status int, a *render.Artifact) {
	c.Header("Cache-Control", "no-store")
	c.Data(status, a.ContentType, a.Data)
}
