package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

// Context is what a Handler sees for one claimed run: the run row, a decoded
// payload, and a logger already tagged with the run id and type.
type Context struct {
	Ctx context.Context
	DB  *gorm.DB
	Job *types.JobRun
	Log *logger.Logger

	payload map[string]interface{}
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, baseLog *logger.Logger) (*Context, error) {
	payload := map[string]interface{}{}
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid job payload: %w", err)
		}
	}
	return &Context{
		Ctx:     ctx,
		DB:      db,
		Job:     job,
		Log:     baseLog.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts),
		payload: payload,
	}, nil
}

func (jc *Context) Payload() map[string]interface{} {
	return jc.payload
}

func (jc *Context) PayloadString(key string) (string, error) {
	raw, ok := jc.payload[key]
	if !ok {
		return "", fmt.Errorf("payload missing key %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("payload key %q is not a string", key)
	}
	return s, nil
}

func (jc *Context) PayloadUUID(key string) (uuid.UUID, error) {
	s, err := jc.PayloadString(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("payload key %q is not a uuid: %w", key, err)
	}
	return id, nil
}

func (jc *Context) PayloadInt(key string) (int, error) {
	raw, ok := jc.payload[key]
	if !ok {
		return 0, fmt.Errorf("payload missing key %q", key)
	}
	// JSON numbers decode as float64.
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("payload key %q is not a number", key)
	}
}
