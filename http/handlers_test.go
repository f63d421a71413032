package http

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"flightprice/config"
	"flightprice/db"
	"flightprice/ml"
)

func trainedEnsemble(t *testing.T) *ml.Ensemble {
	t.Helper()

	cfg := &config.Config{}
	cfg.Models.RandomForest = config.TreeParams{NEstimators: 5, MaxDepth: 4, MinSplit: 2, SubSample: 1, RandomState: 1}
	cfg.Models.GradientBoost = config.TreeParams{NEstimators: 10, MaxDepth: 3, MinSplit: 2, LearningRate: 0.1, SubSample: 1, RandomState: 1}
	cfg.Models.ExtraTrees = config.TreeParams{NEstimators: 5, MaxDepth: 4, MinSplit: 2, RandomState: 1}
	cfg.Ensemble.Weights = map[string]float64{"random_forest": 0.3, "gradient_boost": 0.4, "extra_trees": 0.3}

	airlines := []string{"AirGo", "SkyJet", "AirGo", "SkyJet", "AirGo", "SkyJet", "AirGo", "SkyJet"}
	ds := &ml.Dataset{Columns: []string{
		"airline", "source_city", "destination_city", "departure_time",
		"arrival_time", "stops", "class", "duration", "days_left", "price",
	}}
	for i, airline := range airlines {
		ds.Rows = append(ds.Rows, ml.Record{
			"airline":          airline,
			"source_city":      "Delhi",
			"destination_city": "Mumbai",
			"departure_time":   "Morning",
			"arrival_time":     "Evening",
			"stops":            "zero",
			"class":            "Economy",
			"duration":         2.0 + float64(i),
			"days_left":        float64(5 * (i + 1)),
			"price":            4000.0 + 500*float64(i),
		})
	}
	ml.EngineerFeatures(ds)

	pre := ml.NewPreprocessor("price", []string{"duration", "days_left"}, false, "standard")
	X, y, err := pre.FitTransform(ds)
	if err != nil {
		t.Fatalf("fit preprocessor: %v", err)
	}

	ens, err := ml.BuildEnsemble(cfg)
	if err != nil {
		t.Fatalf("build ensemble: %v", err)
	}
	ens.Pre = pre
	if err := ens.Train(X, y); err != nil {
		t.Fatalf("train ensemble: %v", err)
	}
	return ens
}

func newTestAPI(t *testing.T) (*API, *http.ServeMux) {
	t.Helper()
	api := NewAPI(nil, "FlightPricePredictor", "production", filepath.Join(t.TempDir(), "latest.json"), zap.NewNop().Sugar())
	api.savePrediction = func(db.PredictionRecord) (int64, error) { return 1, nil }
	api.updateActualPrice = func(int64, float64) error { return nil }
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	return api, mux
}

func activate(api *API, ens *ml.Ensemble) {
	api.state.Swap(&ActiveModel{Ensemble: ens, Info: newModelInfo("FlightPricePredictor", "3", "production", "ensemble")})
}

func predictBody() []byte {
	payload, _ := json.Marshal(FlightFeatures{
		Airline:         "AirGo",
		SourceCity:      "Delhi",
		DestinationCity: "Mumbai",
		DepartureTime:   "Morning",
		ArrivalTime:     "Evening",
		Stops:           "zero",
		FlightClass:     "Economy",
		Duration:        3,
		DaysLeft:        10,
	})
	return payload
}

func TestHealthReportsModelState(t *testing.T) {
	api, mux := newTestAPI(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &payload)
	if payload["model_loaded"] != false {
		t.Errorf("expected model_loaded false, got %v", payload["model_loaded"])
	}

	activate(api, trainedEnsemble(t))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	json.Unmarshal(w.Body.Bytes(), &payload)
	if payload["model_loaded"] != true {
		t.Errorf("expected model_loaded true, got %v", payload["model_loaded"])
	}
}

func TestModelInfoUnavailable(t *testing.T) {
	_, mux := newTestAPI(t)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/model_info", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestPredictWithoutModel(t *testing.T) {
	_, mux := newTestAPI(t)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(predictBody())))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestPredictSuccess(t *testing.T) {
	api, mux := newTestAPI(t)
	activate(api, trainedEnsemble(t))

	logged := false
	api.savePrediction = func(record db.PredictionRecord) (int64, error) {
		logged = true
		if record.ModelVersion != "3" {
			t.Errorf("logged wrong version %q", record.ModelVersion)
		}
		return 42, nil
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(predictBody())))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PredictionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.PredictedPrice <= 0 {
		t.Errorf("expected positive price, got %f", resp.PredictedPrice)
	}
	if resp.ModelVersion != "3" {
		t.Errorf("expected version 3, got %q", resp.ModelVersion)
	}
	if !logged {
		t.Error("prediction was not logged")
	}
}

func TestPredictSurvivesLogFailure(t *testing.T) {
	api, mux := newTestAPI(t)
	activate(api, trainedEnsemble(t))
	api.savePrediction = func(db.PredictionRecord) (int64, error) {
		return 0, errors.New("disk full")
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(predictBody())))
	if w.Code != http.StatusOK {
		t.Fatalf("log-store failure must not fail the response, got %d", w.Code)
	}
}

func TestPredictValidation(t *testing.T) {
	api, mux := newTestAPI(t)
	activate(api, trainedEnsemble(t))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader([]byte("{not json"))))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader([]byte(`{"airline":"AirGo"}`))))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing required fields, got %d", w.Code)
	}
}

func TestPredictUnseenCategories(t *testing.T) {
	api, mux := newTestAPI(t)
	activate(api, trainedEnsemble(t))

	payload, _ := json.Marshal(FlightFeatures{
		Airline:         "NeverSeenAir",
		SourceCity:      "Atlantis",
		DestinationCity: "ElDorado",
		Duration:        3,
		DaysLeft:        10,
	})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(payload)))
	if w.Code != http.StatusOK {
		t.Fatalf("unseen categories should still predict, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReloadFromLocalArtifact(t *testing.T) {
	api, mux := newTestAPI(t)
	if err := trainedEnsemble(t).Save(api.localPath); err != nil {
		t.Fatalf("save artifact: %v", err)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	active := api.state.Get()
	if active == nil || active.Info.ModelVersion != "local" {
		t.Fatalf("expected local model active, got %+v", active)
	}
}

func TestReloadFailureKeepsCurrentModel(t *testing.T) {
	api, mux := newTestAPI(t)
	ens := trainedEnsemble(t)
	activate(api, ens)

	// No artifact on disk and no registry: reload must fail.
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if active := api.state.Get(); active == nil || active.Info.ModelVersion != "3" {
		t.Fatal("failed reload should keep the previous model active")
	}
}

func TestFeedback(t *testing.T) {
	api, mux := newTestAPI(t)

	updated := false
	api.updateActualPrice = func(id int64, price float64) error {
		updated = true
		if id != 42 || price != 6100 {
			t.Errorf("unexpected feedback args: id=%d price=%f", id, price)
		}
		return nil
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback",
		bytes.NewReader([]byte(`{"prediction_id":42,"actual_price":6100}`))))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !updated {
		t.Error("feedback was not applied")
	}

	api.updateActualPrice = func(int64, float64) error { return sql.ErrNoRows }
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback",
		bytes.NewReader([]byte(`{"prediction_id":999,"actual_price":1}`))))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown prediction, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/feedback",
		bytes.NewReader([]byte(`{"actual_price":1}`))))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing prediction_id, got %d", w.Code)
	}
}
