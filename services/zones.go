package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/Yulian302/lfusys-renewal-map/apiclient"
	"github.com/Yulian302/lfusys-renewal-map/services/types"
)

const (
	ZonesEndpoint    = "/api/v1/server/xinbei/geolocation-json"
	DefaultDirectory = "tucheng.json"
)

type ZoneService interface {
	GetZones(ctx context.Context, directory string) []types.RenewalZone
}

type ZoneServiceImpl struct {
	client *apiclient.Client
	logger *slog.Logger

	lastErr errorSlot
}

func NewZoneServiceImpl(client *apiclient.Client, logger *slog.Logger) *ZoneServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneServiceImpl{
		client: client,
		logger: logger.With(slog.String("service", "zones")),
	}
}

// GetZones never fails: any error is logged and yields an empty slice. The
// error stays readable through LastError.
func (svc *ZoneServiceImpl) GetZones(ctx context.Context, directory string) []types.RenewalZone {
	if directory == "" {
		directory = DefaultDirectory
	}
	endpoint := ZonesEndpoint + "?" + url.Values{"directory": {directory}}.Encode()

	resp, err := apiclient.Request[types.GeoJSONResponse](ctx, svc.client, endpoint)
	if err != nil {
		err = fmt.Errorf("fetch zones: %w", err)
		svc.lastErr.set(err)
		svc.logger.Error("fetch zones failed",
			slog.String("directory", directory),
			slog.String("error", err.Error()),
		)
		return []types.RenewalZone{}
	}
	svc.lastErr.set(nil)

	features := resp.Result.Features
	zones := make([]types.RenewalZone, len(features))
	for i, f := range features {
		zones[i] = types.RenewalZone{ID: i, GeoJSONData: f}
	}
	return zones
}

// LastError reports why the most recent fetch came back empty, or nil when
// it succeeded.
func (svc *ZoneServiceImpl) LastError() error {
	return svc.lastErr.get()
}

type errorSlot struct {
	mu  sync.Mutex
	err error
}

func (s *errorSlot) set(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *errorSlot) get() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
