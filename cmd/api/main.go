package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/db"
	"github.com/gopherchat/gopherchat/internal/httpapi"
	"github.com/gopherchat/gopherchat/internal/storage"
	"github.com/gopherchat/gopherchat/internal/store/rabbitmq"
	"github.com/gopherchat/gopherchat/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Printf("redis unreachable addr=%s err=%v", cfg.RedisAddr, err)
	}

	disks := storage.NewRegistry()
	local, err := storage.NewLocalDisk(cfg.UploadBasePath, cfg.UploadBaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	disks.Register("local", local)

	blobs, err := disks.Get(cfg.AttachmentDisk)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// the broker is optional: without it sends still work, events are skipped
	var events chat.EventPublisher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unreachable url=%s err=%v", cfg.RabbitURL, err)
	} else {
		defer pub.Close()
		events = pub
	}

	r := httpapi.NewRouter(gdb, cfg, rds, blobs, events)

	log.Printf("api listening addr=%s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
