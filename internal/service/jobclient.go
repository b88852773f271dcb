package service

import (
	"time"

	"coiportal/internal/jobs"

	"github.com/hibiken/asynq"
)

// AsynqJobClient implements JobClient using asynq
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) EnqueueSubmitted(answerID string) error {
	return jobs.EnqueueSubmitted(c.client, answerID)
}

func (c *AsynqJobClient) ScheduleReminder(answerID string, remindAt time.Time) error {
	return jobs.ScheduleReminder(c.client, answerID, remindAt)
}
