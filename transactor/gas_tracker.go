package transactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/welthee/cryptowallet/transaction"
)

var ErrFailToGetResponseFromGasTracker = errors.New("failed to get a response from the gas tracker")

// GasTracker provides methods for gas tracking
type GasTracker interface {
	// GetSuggestedGasPrice retrieve the network's suggested gas price
	GetSuggestedGasPrice(ctx context.Context) (*GasTrackerResponse, error)
}

// GasFee holds the EIP-1559 caps in GWei.
type GasFee struct {
	MaxPriorityFee float64 `json:"maxPriorityFee"`
	MaxFee         float64 `json:"maxFee"`
}

// GasTrackerResponse contains gas price values in GWei,
// 'blockNumber' tells what was the latest block mined when recommendation was made
// 'blockTime' in second, which gives average block time of network
type GasTrackerResponse struct {
	SafeLow          GasFee  `json:"safeLow"`
	Standard         GasFee  `json:"standard"`
	Fast             GasFee  `json:"fast"`
	EstimatedBaseFee float64 `json:"estimatedBaseFee"`
	BlockTime        int     `json:"blockTime"`
	BlockNumber      int     `json:"blockNumber"`
}

func (r GasTrackerResponse) String() string {
	marshal, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(marshal)
}

// ForSpeed picks the caps matching the transfer speed, safe low when unset.
func (r GasTrackerResponse) ForSpeed(speed transaction.Speed) GasFee {
	switch speed {
	case transaction.SpeedFast:
		return r.Fast
	case transaction.SpeedNormal:
		return r.Standard
	default:
		return r.SafeLow
	}
}

type gasStationTracker struct {
	gasTrackerURL string
	client        *http.Client
}

// NewGasStationTracker creates a tracker reading a gas station v2 endpoint.
func NewGasStationTracker(url string, client *http.Client) GasTracker {
	if client == nil {
		client = http.DefaultClient
	}
	return gasStationTracker{gasTrackerURL: url, client: client}
}

func (o gasStationTracker) GetSuggestedGasPrice(ctx context.Context) (*GasTrackerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.gasTrackerURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailToGetResponseFromGasTracker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", ErrFailToGetResponseFromGasTracker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result GasTrackerResponse
	err = json.Unmarshal(body, &result)
	if err != nil {
		return nil, err
	}

	log.Info().Str("response", result.String()).Msg("got from gas tracker")
	return &result, nil
}
