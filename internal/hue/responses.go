package hue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wheelibin/hughbridge/internal/models"
)

const (
	lightType             = "Extended color light"
	lightModelID          = "LCB001"
	lightManufacturerName = "Signify Netherlands B.V."
	lightProductName      = "Hue color downlight"
	lightSoftwareVersion  = "1.53.3_r27175"
	lightEffect           = "none"
	lightMode             = "homeautomation"
)

// field order matches what Hue clients have been seen to expect
type LightStateResponse struct {
	On               bool   `json:"on"`
	Brightness       uint8  `json:"bri"`
	Hue              uint16 `json:"hue"`
	Saturation       uint8  `json:"sat"`
	ColorTemperature uint16 `json:"ct"`
	ColorMode        string `json:"colormode"`
	Effect           string `json:"effect"`
	Mode             string `json:"mode"`
	Reachable        bool   `json:"reachable"`
}

type LightResponse struct {
	Type             string             `json:"type"`
	Name             string             `json:"name"`
	UniqueID         string             `json:"uniqueid"`
	ModelID          string             `json:"modelid"`
	ManufacturerName string             `json:"manufacturername"`
	ProductName      string             `json:"productname"`
	State            LightStateResponse `json:"state"`
	SoftwareVersion  string             `json:"swversion"`
}

func newLightResponse(d models.Descriptor) LightResponse {
	return LightResponse{
		Type:             lightType,
		Name:             d.Name,
		UniqueID:         d.UniqueID,
		ModelID:          lightModelID,
		ManufacturerName: lightManufacturerName,
		ProductName:      lightProductName,
		State: LightStateResponse{
			On:               d.On,
			Brightness:       d.Brightness,
			Hue:              d.Hue,
			Saturation:       d.Saturation,
			ColorTemperature: d.ColorTemperature,
			ColorMode:        d.ColorMode,
			Effect:           lightEffect,
			Mode:             lightMode,
			Reachable:        true,
		},
		SoftwareVersion: lightSoftwareVersion,
	}
}

type ErrorDetail struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// SuccessResponse wraps a single key/value, e.g. {"success":{"username":"userid"}}.
type SuccessResponse struct {
	Success map[string]any `json:"success"`
}

func success(key string, value any) SuccessResponse {
	return SuccessResponse{Success: map[string]any{key: value}}
}

func stateSuccess(light int, field string, value any) SuccessResponse {
	return success(fmt.Sprintf("/lights/%d/state/%s", light, field), value)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *HueAPIService) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := marshal(v)
	if err != nil {
		h.logger.Error("Error encoding response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeBody(w, status, "application/json", body)
}

func (h *HueAPIService) writeError(w http.ResponseWriter, status int, errorType int, address string, description string) {
	h.writeJSON(w, status, []ErrorResponse{{Error: ErrorDetail{
		Type:        errorType,
		Address:     address,
		Description: description,
	}}})
}
