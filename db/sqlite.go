package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// PredictionRecord is one served prediction. Rows are append-only; only
// the actual price feedback field may be filled in later.
type PredictionRecord struct {
	ID             int64
	Timestamp      time.Time
	Features       map[string]interface{}
	PredictedPrice float64
	ModelName      string
	ModelVersion   string
	LatencyMs      float64
	ActualPrice    *float64
}

// TrainingRecord is one training run summary.
type TrainingRecord struct {
	ModelName  string
	MAE        float64
	RMSE       float64
	R2         float64
	MAPE       float64
	TrainedAt  time.Time
	DataPoints int
}

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp DATETIME NOT NULL,
        features TEXT NOT NULL,
        predicted_price REAL NOT NULL,
        model_name VARCHAR(100),
        model_version VARCHAR(50),
        latency_ms REAL,
        actual_price REAL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp);
    CREATE INDEX IF NOT EXISTS idx_predictions_model_version ON predictions(model_version);
    CREATE INDEX IF NOT EXISTS idx_timestamp_model ON predictions(timestamp, model_version);
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY,
        model_name VARCHAR(100),
        mae REAL,
        rmse REAL,
        r2 REAL,
        mape REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// SavePrediction appends one prediction log entry and returns its row id.
func SavePrediction(record PredictionRecord) (int64, error) {
	if database == nil {
		return 0, errors.New("database not initialized")
	}
	features, err := json.Marshal(record.Features)
	if err != nil {
		return 0, err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	result, err := database.Exec(`
        INSERT INTO predictions (timestamp, features, predicted_price, model_name, model_version, latency_ms)
        VALUES (?, ?, ?, ?, ?, ?)`,
		record.Timestamp, string(features), record.PredictedPrice,
		record.ModelName, record.ModelVersion, record.LatencyMs)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentPredictions returns predictions at or after the cutoff, oldest
// first.
func RecentPredictions(since time.Time) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT id, timestamp, features, predicted_price, model_name, model_version, latency_ms, actual_price
        FROM predictions
        WHERE timestamp >= ?
        ORDER BY timestamp ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var r PredictionRecord
		var features string
		var modelName, modelVersion sql.NullString
		var latency, actual sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Timestamp, &features, &r.PredictedPrice,
			&modelName, &modelVersion, &latency, &actual); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, err
		}
		r.ModelName = modelName.String
		r.ModelVersion = modelVersion.String
		if latency.Valid {
			r.LatencyMs = latency.Float64
		}
		if actual.Valid {
			price := actual.Float64
			r.ActualPrice = &price
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpdateActualPrice fills in the feedback field on a logged prediction.
func UpdateActualPrice(id int64, actualPrice float64) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	result, err := database.Exec(`UPDATE predictions SET actual_price = ? WHERE id = ?`, actualPrice, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LogTraining records a training run summary.
func LogTraining(record TrainingRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if record.TrainedAt.IsZero() {
		record.TrainedAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO training_log (model_name, mae, rmse, r2, mape, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ModelName, record.MAE, record.RMSE, record.R2, record.MAPE,
		record.TrainedAt, record.DataPoints)
	return err
}
