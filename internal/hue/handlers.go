package hue

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/jsonlite"
	"github.com/wheelibin/hughbridge/internal/models"
)

func (h *HueAPIService) handleGetDescription(w http.ResponseWriter, r *http.Request) {
	body, err := renderDescription(h.identity.Current(), h.opts.Port)
	if err != nil {
		h.logger.Error("Error rendering description", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeBody(w, http.StatusOK, "text/xml", body)
}

// handlePostDeviceType pairs a client. Every client gets the same username.
func (h *HueAPIService) handlePostDeviceType(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	req := jsonlite.Parse(body)
	h.logger.Info("Pairing request", "devicetype", req.Field(constants.FieldDeviceType).Str())

	h.writeJSON(w, http.StatusOK, []SuccessResponse{success("username", h.opts.Username)})
}

func (h *HueAPIService) handleGetState(w http.ResponseWriter, r *http.Request) {
	light := lightNumber(chi.URLParam(r, "id"))

	if light == 0 {
		body, err := h.lightList()
		if err != nil {
			h.logger.Error("Error encoding light list", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeBody(w, http.StatusOK, "application/json", body)
		return
	}

	d, ok := h.registry.Describe(light - 1)
	if !ok {
		writeBody(w, http.StatusOK, "application/json", []byte("{}"))
		return
	}
	h.writeJSON(w, http.StatusOK, newLightResponse(d))
}

// lightList is an object keyed by light number. It is assembled by hand so the
// keys come out in numeric order.
func (h *HueAPIService) lightList() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range h.registry.DescribeAll() {
		light, err := marshal(newLightResponse(d))
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"%d":`, i+1)
		buf.Write(light)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *HueAPIService) handlePutState(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	h.logger.Debug("light state request", "path", r.URL.Path, "body", body)

	if len(body) == 0 {
		h.writeError(w, http.StatusBadRequest, constants.ErrorTypeInvalidParameters, r.URL.Path, constants.ErrorDescriptionInvalidParameters)
		return
	}

	light := lightNumber(chi.URLParam(r, "id"))
	if light <= 0 || light > h.registry.Len() {
		h.writeError(w, http.StatusBadRequest, constants.ErrorTypeResourceNotAvailable, r.URL.Path, constants.ErrorDescriptionResourceNotAvailable)
		return
	}

	req := jsonlite.Parse(body)
	state := requestedState(req)
	h.registry.SetState(light-1, state)

	// echo what was stored, which differs from the request for a zero bri or ct
	d, _ := h.registry.Describe(light - 1)
	resp := []SuccessResponse{stateSuccess(light, constants.FieldOn, d.On)}
	if req.Has(constants.FieldBrightness) {
		resp = append(resp, stateSuccess(light, constants.FieldBrightness, d.Brightness))
	}
	if req.Has(constants.FieldHue) {
		resp = append(resp, stateSuccess(light, constants.FieldHue, d.Hue))
	}
	if req.Has(constants.FieldSaturation) {
		resp = append(resp, stateSuccess(light, constants.FieldSaturation, d.Saturation))
	}
	if req.Has(constants.FieldColorTemperature) {
		resp = append(resp, stateSuccess(light, constants.FieldColorTemperature, d.ColorTemperature))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HueAPIService) handleNotFound(w http.ResponseWriter, r *http.Request) {
	description := fmt.Sprintf("method, %s, not available", r.Method)
	h.writeError(w, http.StatusNotFound, constants.ErrorTypeMethodNotAvailable, r.URL.Path, description)
}

// requestedState maps a state body onto a mutation. Missing numeric fields are
// zero, a missing "on" is off. Values are truncated to the field widths.
func requestedState(req jsonlite.Value) models.LightState {
	mode := models.ColorModeHueSaturation
	if req.Has(constants.FieldXY) {
		mode = models.ColorModeXY
	} else if req.Has(constants.FieldColorTemperature) {
		mode = models.ColorModeColorTemperature
	}

	return models.LightState{
		On:               req.Field(constants.FieldOn).Bool(),
		Brightness:       uint8(req.Field(constants.FieldBrightness).Int()),
		Hue:              uint16(req.Field(constants.FieldHue).Int()),
		Saturation:       uint8(req.Field(constants.FieldSaturation).Int()),
		ColorTemperature: uint16(req.Field(constants.FieldColorTemperature).Int()),
		ColorMode:        mode,
	}
}

// lightNumber reads an optionally signed run of leading decimal digits from a
// path segment, 0 if there are none. Negative numbers come back as they are so
// callers treat them as out of range.
func lightNumber(segment string) int {
	start := 0
	if strings.HasPrefix(segment, "-") {
		start = 1
	}
	end := start
	for end < len(segment) && segment[end] >= '0' && segment[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	// out of range values saturate and land past the end
	n, _ := strconv.Atoi(segment[:end])
	return n
}

func readBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	return string(body)
}
