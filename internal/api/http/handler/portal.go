package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/EternisAI/silo-device/internal/credentials"
	"github.com/EternisAI/silo-device/internal/secret"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps the size of a provisioning submission.
const MaxBodyBytes = 512

const (
	contentTypeHTML = "text/html; charset=utf-8"

	msgMissingFields    = "Missing required fields"
	msgFieldTooLong     = "Field too long"
	msgBodyTooLarge     = "Request body too large"
	msgStoreFailed      = "Failed to store credentials"
	msgAlreadyCompleted = "Device already provisioned"
)

type CredentialStore interface {
	Store(rec *credentials.Record) error
}

// Completion is the write-once flag the portal sets after a successful
// submission.
type Completion interface {
	Complete() bool
	Completed() bool
}

type PortalHandler struct {
	store    CredentialStore
	done     Completion
	validate *validator.Validate

	// serialises store+complete so a submission either wins or sees 409
	mu sync.Mutex
}

func NewPortalHandler(store CredentialStore, done Completion) *PortalHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	})
	return &PortalHandler{
		store:    store,
		done:     done,
		validate: v,
	}
}

func (h *PortalHandler) Form(ctx *gin.Context) {
	ctx.Data(http.StatusOK, contentTypeHTML, []byte(formPage))
}

func (h *PortalHandler) Provision(ctx *gin.Context) {
	body, err := readBody(ctx.Request)
	defer secret.Wipe(body)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			slog.Warn("Provisioning form rejected", "reason", "body too large", "limit", MaxBodyBytes)
			ctx.String(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		slog.Error("Failed to read provisioning form", "error", err)
		ctx.String(http.StatusBadRequest, msgMissingFields)
		return
	}

	form := provisionForm(DecodeForm(body))
	secret.Wipe(body)
	defer form.Wipe()

	if err := h.validate.Struct(&form); err != nil {
		msg := validationMessage(err)
		slog.Error("Invalid provisioning form", "reason", msg)
		ctx.String(http.StatusBadRequest, msg)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done.Completed() {
		slog.Warn("Provisioning form submitted after completion")
		ctx.String(http.StatusConflict, msgAlreadyCompleted)
		return
	}

	rec := credentials.NewRecord(form.SSID, form.Password, form.DeviceID, form.APIKey)
	if err := h.store.Store(rec); err != nil {
		slog.Error("Failed to store credentials", "error", err)
		ctx.String(http.StatusInternalServerError, msgStoreFailed)
		return
	}

	h.done.Complete()

	slog.Info("Provisioning complete, device will restart", "device_id", string(form.DeviceID))
	ctx.Data(http.StatusOK, contentTypeHTML, []byte(successPage))
}

var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most MaxBodyBytes into a single fixed buffer so no
// partial copies of the submission are left behind by slice growth.
func readBody(req *http.Request) ([]byte, error) {
	if req.ContentLength > MaxBodyBytes {
		return nil, errBodyTooLarge
	}

	buf := make([]byte, MaxBodyBytes+1)
	n, err := io.ReadFull(req.Body, buf)
	switch {
	case err == nil:
		secret.Wipe(buf)
		return nil, errBodyTooLarge
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:n], nil
	default:
		secret.Wipe(buf)
		return nil, err
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return msgMissingFields
	}
	for _, fe := range verrs {
		if fe.Tag() == "min" {
			return msgMissingFields
		}
	}
	return msgFieldTooLong + ": " + verrs[0].Field()
}
