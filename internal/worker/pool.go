package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"cloud-backend/internal/models"
	"cloud-backend/internal/repository"
)

// TitleQueue is the Redis list conversation-title jobs are pushed onto.
const TitleQueue = "queue:title-generation"

type titleGenerator interface {
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// Pool consumes title-generation jobs: after a conversation's first
// exchange, a worker asks the gateway for a short title and replaces the
// placeholder. A failed job is dropped; the conversation simply keeps its
// placeholder title and the next exchange will not retry.
type Pool struct {
	redis       *redis.Client
	gateway     titleGenerator
	convRepo    *repository.ConversationRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, gateway titleGenerator, convRepo *repository.ConversationRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		gateway:     gateway,
		convRepo:    convRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d title worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Title worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, TitleQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.TitleJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Title worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Lock so a re-queued job is not titled twice
		lockKey := fmt.Sprintf("title_lock:%s", job.ConversationID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 5*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		if err := p.process(ctx, &job); err != nil {
			log.Printf("Title worker %d: job for %s failed: %v", id, job.ConversationID, err)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.TitleJob) error {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	title, err := p.gateway.GenerateTitle(ctx, job.FirstMessage)
	if err != nil {
		return err
	}
	if len(title) > 80 {
		title = title[:80]
	}

	return p.convRepo.UpdateTitle(ctx, job.ConversationID, job.UserID, title)
}
