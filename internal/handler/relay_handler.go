package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxrelay/voxrelay/internal/assistant"
	"github.com/voxrelay/voxrelay/internal/auth"
	"github.com/voxrelay/voxrelay/internal/bridge"
	"github.com/voxrelay/voxrelay/internal/config"
	"github.com/voxrelay/voxrelay/internal/upstream"
)

// RelayHandler serves the relay API: completion forwarding, assistant
// operations, bridge attachment, and health.
type RelayHandler struct {
	client    *upstream.Client
	assistant *assistant.Assistant
	issuer    *auth.Issuer
	hub       *bridge.Hub
	settings  *config.Settings
	serverKey string
	logger    *slog.Logger
}

// RelayHandlerOption is a functional option for configuring RelayHandler.
type RelayHandlerOption func(*RelayHandler)

// WithServerKey sets the server-held upstream credential.
func WithServerKey(key string) RelayHandlerOption {
	return func(h *RelayHandler) { h.serverKey = key }
}

// WithHandlerLogger sets a custom logger.
func WithHandlerLogger(logger *slog.Logger) RelayHandlerOption {
	return func(h *RelayHandler) { h.logger = logger }
}

// WithSettings attaches the mutable settings store.
func WithSettings(settings *config.Settings) RelayHandlerOption {
	return func(h *RelayHandler) { h.settings = settings }
}

// WithBridge attaches the websocket bridge hub.
func WithBridge(hub *bridge.Hub) RelayHandlerOption {
	return func(h *RelayHandler) { h.hub = hub }
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(client *upstream.Client, assist *assistant.Assistant, issuer *auth.Issuer, opts ...RelayHandlerOption) *RelayHandler {
	h := &RelayHandler{
		client:    client,
		assistant: assist,
		issuer:    issuer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleHealth handles GET /health.
// Echoes the request headers back so browser clients can inspect what
// actually arrived through their proxy chain.
func (h *RelayHandler) HandleHealth(c *gin.Context) {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		headers[name] = strings.Join(values, ", ")
	}

	frames := 0
	if h.hub != nil {
		frames = h.hub.FrameCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"frames":    frames,
		"headers":   headers,
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

// HandleChat handles POST /chat, the connectivity echo endpoint.
func (h *RelayHandler) HandleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "message is required",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"received":  req.Message,
		"response":  "Echo: " + req.Message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// completionRequest is the OpenAI-shaped relay request body.
type completionRequest struct {
	Model       string             `json:"model"`
	Messages    []upstream.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
	N           int                `json:"n"`
}

// HandleChatCompletions handles POST /openai/chat/completions.
// The credential resolves server key first, then the client's bearer.
// Without any plausible credential the request is refused up front
// rather than burned against the endpoint rotation.
func (h *RelayHandler) HandleChatCompletions(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "messages array is required")
		return
	}

	key, err := h.resolveCredential(c)
	if err != nil {
		h.logger.Warn("completion refused",
			slog.String("client_ip", c.ClientIP()),
			slog.String("error", err.Error()),
		)
		h.sendError(c, http.StatusUnauthorized, "invalid_api_key",
			"No API key configured. Set a server key or send a Bearer token.")
		return
	}

	ctx := upstream.ContextWithCredential(c.Request.Context(), key)
	result := h.client.Complete(ctx, upstream.CompletionParams{
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           req.N,
	})

	c.Set("degraded", result.Degraded)

	c.JSON(http.StatusOK, gin.H{
		"id":       result.ID,
		"object":   "chat.completion",
		"created":  time.Now().Unix(),
		"model":    result.Model,
		"choices":  completionChoices(result),
		"usage":    estimateUsage(req.Messages, result),
		"degraded": result.Degraded,
	})
}

// completionChoices renders result choices in OpenAI wire shape.
func completionChoices(result upstream.CompletionResult) []gin.H {
	choices := make([]gin.H, 0, len(result.Choices))
	for i, choice := range result.Choices {
		choices = append(choices, gin.H{
			"index":         i,
			"message":       choice.Message,
			"finish_reason": "stop",
		})
	}
	return choices
}

// resolveCredential picks the upstream credential for this request.
// Order: user settings key, server config key, client bearer. Client
// bearers must look like an API key (sk- prefix) to be accepted; with
// nothing usable it returns upstream.ErrNoCredential, the one
// configuration error that surfaces to the caller.
func (h *RelayHandler) resolveCredential(c *gin.Context) (string, error) {
	if h.settings != nil {
		if key := h.settings.APIKey(); key != "" {
			return key, nil
		}
	}
	if h.serverKey != "" {
		return h.serverKey, nil
	}

	bearer, _ := c.Get("client_bearer")
	if key, ok := bearer.(string); ok && strings.HasPrefix(key, "sk-") {
		h.logger.Debug("using client-supplied credential",
			slog.String("key", maskKey(key)),
		)
		return key, nil
	}
	return "", upstream.ErrNoCredential
}

type assistRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// HandleSuggestions handles POST /assist/suggestions.
func (h *RelayHandler) HandleSuggestions(c *gin.Context) {
	var req assistRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	result := h.assistant.GetSuggestions(c.Request.Context(), req.Text)
	c.Set("degraded", result.Degraded)
	c.JSON(http.StatusOK, result)
}

// HandleBilingual handles POST /assist/bilingual.
func (h *RelayHandler) HandleBilingual(c *gin.Context) {
	var req assistRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	result := h.assistant.GetBilingualResponses(c.Request.Context(), req.Text)
	c.Set("degraded", result.Degraded)
	c.JSON(http.StatusOK, result)
}

// HandleTranslate handles POST /assist/translate.
func (h *RelayHandler) HandleTranslate(c *gin.Context) {
	var req assistRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if req.SourceLang == "" {
		req.SourceLang = "en"
	}
	if req.TargetLang == "" {
		req.TargetLang = "ru"
	}

	result := h.assistant.GetTranslation(c.Request.Context(), req.Text, req.SourceLang, req.TargetLang)
	c.Set("degraded", result.Degraded)
	c.JSON(http.StatusOK, result)
}

// HandleSession handles POST /session. It mints a bridge attach token
// bound to the caller's origin.
func (h *RelayHandler) HandleSession(c *gin.Context) {
	reqOrigin := c.GetHeader("Origin")

	token, err := h.issuer.Mint(uuid.NewString(), reqOrigin)
	if err != nil {
		h.logger.Error("session token mint failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresIn": int(h.issuer.TTL().Seconds()),
	})
}

// HandleBridge handles GET /bridge. A valid session token upgrades the
// connection to a websocket frame on the hub.
func (h *RelayHandler) HandleBridge(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bridge disabled"})
		return
	}

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
		return
	}
	claims, err := h.issuer.Verify(token)
	if err != nil {
		h.logger.Warn("bridge attach rejected",
			slog.String("client_ip", c.ClientIP()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
		return
	}

	frame, err := h.hub.Attach(c.Writer, c.Request)
	if err != nil {
		// Attach already wrote the HTTP error during the failed upgrade.
		h.logger.Warn("bridge upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.logger.Info("bridge frame attached",
		slog.String("frame_id", frame.ID()),
		slog.String("origin", frame.Origin()),
		slog.String("session", claims.Subject),
	)
}

// HandleSettings handles GET /settings and PUT /settings.
func (h *RelayHandler) HandleSettings(c *gin.Context) {
	if h.settings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "settings store disabled"})
		return
	}

	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, h.settings.Snapshot())
		return
	}

	var req struct {
		APIKey         *string `json:"apiKey"`
		UseServerProxy *bool   `json:"useServerProxy"`
		ServerProxyURL *string `json:"serverProxyUrl"`
		ResponseStyle  *string `json:"responseStyle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
		return
	}

	var err error
	if req.APIKey != nil {
		err = h.settings.SetAPIKey(*req.APIKey)
	}
	if err == nil && req.UseServerProxy != nil {
		err = h.settings.SetUseServerProxy(*req.UseServerProxy)
	}
	if err == nil && req.ServerProxyURL != nil {
		err = h.settings.SetServerProxyURL(*req.ServerProxyURL)
	}
	if err == nil && req.ResponseStyle != nil {
		err = h.settings.SetResponseStyle(*req.ResponseStyle)
	}
	if err != nil {
		h.logger.Error("settings update failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist settings"})
		return
	}

	c.JSON(http.StatusOK, h.settings.Snapshot())
}

// sendError sends an error response in OpenAI-compatible format.
func (h *RelayHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
			"param":   nil,
			"code":    nil,
		},
	})
}
