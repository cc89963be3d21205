package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"vouchswap/internal/models"
)

const (
	VISION_TIMEOUT     = 20 * time.Second
	VISION_RETRY_COUNT = 2
)

// ServiceVision calls the extraction endpoint that reads voucher photos.
// Whatever comes back is untrusted input for the validation pipeline; a
// transport or decode failure here is a system error, never a rejection.
type ServiceVision struct {
	endpoint string
	apiKey   string
	client   *httpclient.Client
}

func NewServiceVision(endpoint, apiKey string) (*ServiceVision, error) {
	backoff := heimdall.NewExponentialBackoff(500*time.Millisecond, 5*time.Second, 2, 100*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(VISION_TIMEOUT),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		httpclient.WithRetryCount(VISION_RETRY_COUNT),
	)

	return &ServiceVision{endpoint, apiKey, client}, nil
}

type visionRequest struct {
	ImageURL string `json:"image_url"`
}

func (service *ServiceVision) Extract(ctx context.Context, imageURL string) (*models.RawExtraction, error) {
	body, err := json.Marshal(visionRequest{imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, service.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if service.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+service.apiKey)
	}

	res, err := service.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: unexpected status %d", res.StatusCode)
	}

	var extraction models.RawExtraction
	if err := json.NewDecoder(res.Body).Decode(&extraction); err != nil {
		return nil, err
	}

	return &extraction, nil
}
