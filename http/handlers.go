package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"flightprice/db"
	"flightprice/metrics"
	"flightprice/ml"
	"flightprice/registry"
)

// APIVersion is reported by the root endpoint.
const APIVersion = "1.0.0"

// API owns the serving state and its dependencies.
type API struct {
	state        *ModelState
	hub          *MonitorHub
	registry     registry.Client
	modelName    string
	defaultAlias string
	localPath    string
	log          *zap.SugaredLogger

	// seams for tests
	savePrediction    func(db.PredictionRecord) (int64, error)
	updateActualPrice func(int64, float64) error
}

// NewAPI wires the serving API. client may be nil when no registry is
// configured; the local artifact is then the only model source.
func NewAPI(client registry.Client, modelName, defaultAlias, localPath string, logger *zap.SugaredLogger) *API {
	return &API{
		state:             NewModelState(),
		hub:               NewMonitorHub(logger),
		registry:          client,
		modelName:         modelName,
		defaultAlias:      defaultAlias,
		localPath:         localPath,
		log:               logger,
		savePrediction:    db.SavePrediction,
		updateActualPrice: db.UpdateActualPrice,
	}
}

// State exposes the model state for startup wiring and tests.
func (api *API) State() *ModelState { return api.state }

// FlightFeatures is the prediction request body. Field names match the
// raw record schema exactly.
type FlightFeatures struct {
	Airline         string  `json:"airline"`
	SourceCity      string  `json:"source_city"`
	DestinationCity string  `json:"destination_city"`
	DepartureTime   string  `json:"departure_time"`
	ArrivalTime     string  `json:"arrival_time"`
	Stops           string  `json:"stops"`
	FlightClass     string  `json:"class"`
	Duration        float64 `json:"duration"`
	DaysLeft        float64 `json:"days_left"`
}

// PredictionResponse is the prediction reply.
type PredictionResponse struct {
	PredictedPrice      float64 `json:"predicted_price"`
	ModelName           string  `json:"model_name"`
	ModelVersion        string  `json:"model_version"`
	PredictionTimestamp string  `json:"prediction_timestamp"`
	LatencyMs           float64 `json:"latency_ms"`
}

// RegisterRoutes attaches all endpoints to the mux.
func (api *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", api.handleRoot)
	mux.HandleFunc("GET /health", api.handleHealth)
	mux.HandleFunc("GET /model_info", api.handleModelInfo)
	mux.HandleFunc("POST /predict", api.handlePredict)
	mux.HandleFunc("POST /reload", api.handleReload)
	mux.HandleFunc("POST /feedback", api.handleFeedback)
	mux.HandleFunc("GET /ws/monitor", api.hub.HandleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (api *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Flight Price Prediction API",
		"version": APIVersion,
		"endpoints": map[string]string{
			"health":     "/health",
			"predict":    "/predict",
			"model_info": "/model_info",
			"reload":     "/reload",
			"feedback":   "/feedback",
			"metrics":    "/metrics",
			"monitor":    "/ws/monitor",
		},
	})
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": api.state.Loaded(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (api *API) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	active := api.state.Get()
	if active == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	respondJSON(w, http.StatusOK, active.Info)
}

func (api *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	active := api.state.Get()
	if active == nil {
		metrics.PredictionCount.WithLabelValues("error").Inc()
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}

	var features FlightFeatures
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&features); err != nil {
		metrics.PredictionCount.WithLabelValues("error").Inc()
		respondError(w, http.StatusUnprocessableEntity, "malformed request body: "+err.Error())
		return
	}
	if features.Airline == "" || features.SourceCity == "" || features.DestinationCity == "" {
		metrics.PredictionCount.WithLabelValues("error").Inc()
		respondError(w, http.StatusUnprocessableEntity, "airline, source_city and destination_city are required")
		return
	}

	price, err := api.infer(active, features)
	if err != nil {
		metrics.PredictionCount.WithLabelValues("error").Inc()
		api.log.Errorw("prediction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	// The log-store write must not fail the already-computed response.
	record := db.PredictionRecord{
		Timestamp:      time.Now().UTC(),
		Features:       features.asMap(),
		PredictedPrice: price,
		ModelName:      active.Info.ModelName,
		ModelVersion:   active.Info.ModelVersion,
		LatencyMs:      latencyMs,
	}
	if _, err := api.savePrediction(record); err != nil {
		api.log.Warnw("failed to log prediction", "error", err)
	}

	metrics.PredictionCount.WithLabelValues("success").Inc()
	metrics.PredictionValue.Observe(price)
	metrics.PredictionLatency.Observe(latencyMs)

	api.hub.Broadcast(PredictionEvent{
		Type:           "prediction",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		PredictedPrice: price,
		ModelVersion:   active.Info.ModelVersion,
		LatencyMs:      latencyMs,
	})

	respondJSON(w, http.StatusOK, PredictionResponse{
		PredictedPrice:      price,
		ModelName:           active.Info.ModelName,
		ModelVersion:        active.Info.ModelVersion,
		PredictionTimestamp: time.Now().UTC().Format(time.RFC3339),
		LatencyMs:           latencyMs,
	})
}

// infer runs the training-time preprocessing over the raw features and
// feeds the result to the ensemble.
func (api *API) infer(active *ActiveModel, features FlightFeatures) (float64, error) {
	if active.Ensemble.Pre == nil {
		return 0, errors.New("artifact carries no preprocessor")
	}

	ds := &ml.Dataset{
		Columns: []string{
			"airline", "source_city", "destination_city", "departure_time",
			"arrival_time", "stops", "class", "duration", "days_left",
		},
		Rows: []ml.Record{{
			"airline":          features.Airline,
			"source_city":      features.SourceCity,
			"destination_city": features.DestinationCity,
			"departure_time":   features.DepartureTime,
			"arrival_time":     features.ArrivalTime,
			"stops":            features.Stops,
			"class":            features.FlightClass,
			"duration":         features.Duration,
			"days_left":        features.DaysLeft,
		}},
	}
	ml.EngineerFeatures(ds)

	X, _, err := active.Ensemble.Pre.Transform(ds)
	if err != nil {
		return 0, err
	}
	return active.Ensemble.Predict(X[0])
}

func (api *API) handleReload(w http.ResponseWriter, r *http.Request) {
	alias := r.URL.Query().Get("alias")
	version := r.URL.Query().Get("version")

	next, err := api.load(r.Context(), alias, version)
	if err != nil {
		// The previous model stays active.
		api.log.Errorw("model reload failed", "alias", alias, "version", version, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to reload model: "+err.Error())
		return
	}

	api.state.Swap(next)
	metrics.ModelInfo.Reset()
	metrics.ModelInfo.WithLabelValues(next.Info.ModelName, next.Info.ModelVersion).Set(1)
	api.log.Infow("model reloaded", "name", next.Info.ModelName, "version", next.Info.ModelVersion, "alias", next.Info.ModelAlias)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"message":    "Model reloaded successfully",
		"model_info": next.Info,
	})
}

type feedbackRequest struct {
	PredictionID int64   `json:"prediction_id"`
	ActualPrice  float64 `json:"actual_price"`
}

func (api *API) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if req.PredictionID <= 0 {
		respondError(w, http.StatusUnprocessableEntity, "prediction_id is required")
		return
	}
	if err := api.updateActualPrice(req.PredictionID, req.ActualPrice); err != nil {
		respondError(w, http.StatusNotFound, "prediction not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Initialize loads the startup model: registry alias first, local
// artifact as fallback. Failure here is fatal — the service must not
// accept traffic without a model.
func (api *API) Initialize(ctx context.Context) error {
	active, err := api.load(ctx, api.defaultAlias, "")
	if err != nil {
		api.log.Warnw("registry model not available, trying local artifact", "error", err)
		active, err = api.loadLocal()
		if err != nil {
			return err
		}
	}
	api.state.Swap(active)
	metrics.ModelInfo.WithLabelValues(active.Info.ModelName, active.Info.ModelVersion).Set(1)
	api.log.Infow("model initialized", "name", active.Info.ModelName, "version", active.Info.ModelVersion)
	return nil
}

// load resolves a model by alias or version through the registry. With
// neither given it falls back to the default alias, then to the local
// artifact when no registry is configured.
func (api *API) load(ctx context.Context, alias, version string) (*ActiveModel, error) {
	if api.registry == nil {
		return api.loadLocal()
	}

	var mv *registry.ModelVersion
	var err error
	switch {
	case version != "":
		mv, err = api.registry.GetModelVersion(ctx, api.modelName, version)
		alias = ""
	case alias != "":
		mv, err = api.registry.GetVersionByAlias(ctx, api.modelName, alias)
	default:
		alias = api.defaultAlias
		mv, err = api.registry.GetVersionByAlias(ctx, api.modelName, alias)
	}
	if err != nil {
		return nil, err
	}

	payload, err := api.registry.DownloadArtifact(ctx, api.modelName, mv.Version)
	if err != nil {
		return nil, err
	}
	ensemble, err := ml.DecodeEnsemble(payload)
	if err != nil {
		return nil, err
	}

	return &ActiveModel{
		Ensemble: ensemble,
		Info:     newModelInfo(api.modelName, mv.Version, alias, "ensemble"),
	}, nil
}

// loadLocal reads the local fallback artifact.
func (api *API) loadLocal() (*ActiveModel, error) {
	ensemble, err := ml.LoadEnsemble(api.localPath)
	if err != nil {
		return nil, err
	}
	return &ActiveModel{
		Ensemble: ensemble,
		Info:     newModelInfo(api.modelName, "local", "", "ensemble"),
	}, nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (f FlightFeatures) asMap() map[string]interface{} {
	return map[string]interface{}{
		"airline":          f.Airline,
		"source_city":      f.SourceCity,
		"destination_city": f.DestinationCity,
		"departure_time":   f.DepartureTime,
		"arrival_time":     f.ArrivalTime,
		"stops":            f.Stops,
		"class":            f.FlightClass,
		"duration":         f.Duration,
		"days_left":        f.DaysLeft,
	}
}
