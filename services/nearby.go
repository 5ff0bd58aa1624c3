package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Yulian302/lfusys-renewal-map/apiclient"
	"github.com/Yulian302/lfusys-renewal-map/geo"
	"github.com/Yulian302/lfusys-renewal-map/services/types"
)

const NearbyEndpoint = "/api/v1/server/xinbei/calc-distance"

type NearbyService interface {
	GetNearby(ctx context.Context, point geo.GeoPoint) []types.NearbyItem
}

type NearbyServiceImpl struct {
	client *apiclient.Client
	logger *slog.Logger

	lastErr errorSlot
}

func NewNearbyServiceImpl(client *apiclient.Client, logger *slog.Logger) *NearbyServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &NearbyServiceImpl{
		client: client,
		logger: logger.With(slog.String("service", "nearby")),
	}
}

// GetNearby returns the stops around point as the backend ranks them. Like
// GetZones, a failure is logged and looks like an empty area.
func (svc *NearbyServiceImpl) GetNearby(ctx context.Context, point geo.GeoPoint) []types.NearbyItem {
	resp, err := apiclient.Request[types.NearbyResponse](ctx, svc.client, NearbyEndpoint,
		apiclient.Method(http.MethodPost),
		apiclient.JSONBody(types.NearbyRequest{Lng: point.Lng, Lat: point.Lat}),
	)
	if err != nil {
		err = fmt.Errorf("fetch nearby stops: %w", err)
		svc.lastErr.set(err)
		svc.logger.Error("fetch nearby stops failed",
			slog.Float64("lat", point.Lat),
			slog.Float64("lng", point.Lng),
			slog.String("error", err.Error()),
		)
		return []types.NearbyItem{}
	}
	svc.lastErr.set(nil)

	if resp.Result == nil {
		return []types.NearbyItem{}
	}
	svc.logger.Debug("nearby stops fetched", slog.Int("count", len(resp.Result)), slog.Bool("tod", resp.TOD))
	return resp.Result
}

func (svc *NearbyServiceImpl) LastError() error {
	return svc.lastErr.get()
}
