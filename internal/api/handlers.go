package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/tools"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type ToolHandler struct {
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
}

func NewToolHandler(d *tools.Dispatcher, logger *zap.Logger) *ToolHandler {
	return &ToolHandler{dispatcher: d, logger: logger}
}

// ListTools returns the tool catalogue.
func (h *ToolHandler) ListTools(c *gin.Context) {
	defs := h.dispatcher.Definitions()
	c.JSON(http.StatusOK, gin.H{"tools": defs, "count": len(defs)})
}

// CallTool runs the tool named in the path with the JSON object body as
// arguments. An empty body means no arguments.
func (h *ToolHandler) CallTool(c *gin.Context) {
	args, err := decodeArgs(c.Request.Body)
	if err != nil {
		respondError(c, appErrors.Describe(err))
		return
	}

	result := h.dispatcher.Call(c.Request.Context(), c.Param("name"), args)
	if !result.Success {
		respondError(c, result.Error)
		return
	}

	c.JSON(http.StatusOK, result)
}

// decodeArgs keeps numbers as json.Number so prices reach the decimal
// parser unrounded.
func decodeArgs(body io.Reader) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return nil, appErrors.ValidationError("Invalid request body").WithError(err)
	}
	if len(raw) > maxBodyBytes {
		return nil, appErrors.ValidationError("Request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, appErrors.ValidationError("Request body must be a JSON object").WithError(err)
	}
	return args, nil
}

func respondError(c *gin.Context, desc *appErrors.Descriptor) {
	c.AbortWithStatusJSON(StatusFor(desc.Kind), tools.Result{Success: false, Error: desc})
}

func internalDescriptor() *appErrors.Descriptor {
	return appErrors.Describe(appErrors.InternalError("Internal error"))
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case appErrors.ErrCodeValidation:
		return http.StatusBadRequest
	case appErrors.ErrCodeNotFound:
		return http.StatusNotFound
	case appErrors.ErrCodeInsufficientStock:
		return http.StatusConflict
	case appErrors.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
