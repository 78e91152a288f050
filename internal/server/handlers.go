package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/fetch"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/internal/render"
	"github.com/arbml/masader-form/pkg/types"
)

// Upload limits.
const (
	maxPDFSize  = 64 << 20
	maxJSONSize = 4 << 20
)

type handlers struct {
	app    *app.App
	render *render.Renderer
}

// newDraft starts a draft from the defaults, or from the annotation at
// ?json_url= when given.
func (h *handlers) newDraft(c echo.Context) error {
	var (
		incoming *types.Record
		msgs     []render.Message
	)
	if u := strings.TrimSpace(c.QueryParam("json_url")); u != "" {
		rec, err := h.app.LoadJSON(c.Request().Context(), u)
		if err != nil {
			slog.Warn("loading annotation failed", "url", u, "error", err)
			msgs = append(msgs, errorMessage("Could not load the annotation: "+err.Error()))
		} else {
			incoming = rec
			msgs = append(msgs, render.Message{Kind: render.MessageInfo, Text: "Loaded annotation from", Link: u})
		}
	}
	return h.create(c, incoming, msgs)
}

// uploadJSON starts a draft from an uploaded annotation file.
func (h *handlers) uploadJSON(c echo.Context) error {
	data, ok, err := formFile(c, "json", maxJSONSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return h.create(c, nil, []render.Message{errorMessage("Please choose a json file to load.")})
	}
	rec, err := fetch.ReadJSON(bytes.NewReader(data))
	if err != nil {
		return h.create(c, nil, []render.Message{errorMessage("Could not load the annotation: " + err.Error())})
	}
	return h.create(c, rec, nil)
}

// extract pre-fills a draft through the extraction service from a paper
// link or an uploaded pdf.
func (h *handlers) extract(c echo.Context) error {
	link := strings.TrimSpace(c.FormValue("paper_url"))
	file, ok, err := formFile(c, "pdf", maxPDFSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if link == "" && !ok {
		return h.create(c, nil, []render.Message{errorMessage("Please enter a paper link or upload a pdf.")})
	}

	rec, err := h.app.Extract(c.Request().Context(), link, file, "paper.pdf")
	if err != nil {
		slog.Warn("extraction failed", "link", link, "error", err)
		return h.create(c, nil, []render.Message{errorMessage(err.Error())})
	}
	return h.create(c, rec, []render.Message{{Kind: render.MessageInfo, Text: "Metadata extracted. Please review every field."}})
}

func (h *handlers) showDraft(c echo.Context) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	return h.page(c, d, "")
}

func (h *handlers) saveDraft(c echo.Context) error {
	d, username, msgs, err := h.submitted(c)
	if err != nil {
		return err
	}
	msgs = append([]render.Message{{Kind: render.MessageSuccess, Text: "Saved."}}, msgs...)
	return h.page(c, d, username, msgs...)
}

func (h *handlers) validateDraft(c echo.Context) error {
	d, username, msgs, err := h.submitted(c)
	if err != nil {
		return err
	}
	res := h.app.Validate(c.Request().Context(), d.Record, username)
	if !res.OK {
		return h.page(c, d, username, append([]render.Message{errorMessage(res.Reason)}, msgs...)...)
	}
	return h.page(c, d, username, append([]render.Message{{Kind: render.MessageSuccess, Text: "All fields are valid."}}, msgs...)...)
}

func (h *handlers) publishDraft(c echo.Context) error {
	d, username, msgs, err := h.submitted(c)
	if err != nil {
		return err
	}
	res, ref, err := h.app.Submit(c.Request().Context(), d.Record, username)
	switch {
	case errors.Is(err, app.ErrNotValid):
		return h.page(c, d, username, append([]render.Message{errorMessage(res.Reason)}, msgs...)...)
	case err != nil:
		slog.Error("publish failed", "draft", d.DraftID, "error", err)
		return h.page(c, d, username, errorMessage("Publishing failed, please try again: "+err.Error()))
	}
	return h.page(c, d, username, outcomeMessage(ref))
}

// schemaField is the JSON view of a schema field.
type schemaField struct {
	Name               string            `json:"name"`
	Question           string            `json:"question,omitempty"`
	Type               string            `json:"type"`
	SubFields          []string          `json:"sub_fields,omitempty"`
	Required           bool              `json:"required"`
	Options            []string          `json:"options,omitempty"`
	OptionDescriptions map[string]string `json:"option_descriptions,omitempty"`
	ValidationGroup    string            `json:"validation_group,omitempty"`
}

func (h *handlers) apiSchema(c echo.Context) error {
	fields := []schemaField{}
	for _, f := range h.app.Schema.Fields() {
		fields = append(fields, schemaField{
			Name:               f.Name,
			Question:           f.Question,
			Type:               string(f.Kind),
			SubFields:          f.SubFields,
			Required:           f.Required,
			Options:            f.Options,
			OptionDescriptions: f.OptionDescriptions,
			ValidationGroup:    f.ValidationGroup,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"mode":   h.app.Schema.Mode,
		"fields": fields,
	})
}

// apiDraft returns the payload of a draft, exactly as it would be saved or
// published.
func (h *handlers) apiDraft(c echo.Context) error {
	d, err := h.draft(c)
	if err != nil {
		return err
	}
	data, err := form.Marshal(h.app.Payload(d.Record))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
}

func (h *handlers) apiPulls(c echo.Context) error {
	entries, err := h.app.PullRequests()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	if entries == nil {
		entries = []types.LedgerEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// create stores a new draft from incoming and renders it.
func (h *handlers) create(c echo.Context, incoming *types.Record, msgs []render.Message) error {
	d, diags, err := h.app.NewDraft(incoming)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return h.page(c, d, "", append(msgs, diagnostics(diags)...)...)
}

// draft loads the draft named by the path.
func (h *handlers) draft(c echo.Context) (*types.Draft, error) {
	d, err := h.app.Draft(c.Param(paramDraftID))
	switch {
	case errors.Is(err, types.ErrInvalidID):
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrDraftNotFound):
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return nil, echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return d, nil
}

// submitted applies the posted form to the draft and stores it.
func (h *handlers) submitted(c echo.Context) (*types.Draft, string, []render.Message, error) {
	d, err := h.draft(c)
	if err != nil {
		return nil, "", nil, err
	}
	values, err := c.FormParams()
	if err != nil {
		return nil, "", nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, diags := form.ParseValues(h.app.Schema, d.Record, values)
	saved, err := h.app.SaveDraft(d.DraftID, rec)
	if err != nil {
		return nil, "", nil, echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return saved, strings.TrimSpace(values.Get("username")), diagnostics(diags), nil
}

func (h *handlers) page(c echo.Context, d *types.Draft, username string, msgs ...render.Message) error {
	var buf bytes.Buffer
	err := h.render.Form(&buf, h.app.Schema, render.Page{
		DraftID:  d.DraftID,
		Mode:     d.Mode,
		Username: username,
		Record:   d.Record,
		Messages: msgs,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// formFile reads the uploaded file named key. ok is false when nothing was
// uploaded.
func formFile(c echo.Context, key string, limit int64) ([]byte, bool, error) {
	fh, err := c.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s upload: %w", key, err)
	}
	if fh.Size > limit {
		return nil, false, fmt.Errorf("%s upload is larger than %d bytes", key, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, false, fmt.Errorf("opening %s upload: %w", key, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s upload: %w", key, err)
	}
	return data, len(data) > 0, nil
}

func errorMessage(text string) render.Message {
	return render.Message{Kind: render.MessageError, Text: text}
}

func diagnostics(diags []form.Diagnostic) []render.Message {
	msgs := make([]render.Message, 0, len(diags))
	for _, d := range diags {
		msgs = append(msgs, render.Message{Kind: render.MessageInfo, Text: d.String()})
	}
	return msgs
}

func outcomeMessage(ref types.PullRequestRef) render.Message {
	switch ref.Outcome {
	case types.OutcomeCreated:
		return render.Message{Kind: render.MessageSuccess, Text: "Pull request created:", Link: ref.URL}
	case types.OutcomeUpdated:
		return render.Message{Kind: render.MessageSuccess, Text: "Pull request updated:", Link: ref.URL}
	default:
		return render.Message{Kind: render.MessageInfo, Text: "No changes to publish.", Link: ref.URL}
	}
}
