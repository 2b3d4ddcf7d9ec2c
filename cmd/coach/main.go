package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/comercialtoddy/cs2-coach-ai/internal/capability"
	"github.com/comercialtoddy/cs2-coach-ai/internal/coach"
	"github.com/comercialtoddy/cs2-coach-ai/internal/engine"
	"github.com/comercialtoddy/cs2-coach-ai/internal/events"
	"github.com/comercialtoddy/cs2-coach-ai/internal/outcome"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/replay"
	"github.com/comercialtoddy/cs2-coach-ai/internal/store"
)

// #region main

func main() {
	_ = godotenv.Load()

	dbPath := envOr("COACH_DB", "coach_session.db")
	registryAddr := envOr("REGISTRY_ADDR", "localhost:50051")

	sessionID := uuid.New().String()
	db, err := store.Open(dbPath, sessionID)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := capability.NewRemoteRegistry(ctx, registryAddr)
	if err != nil {
		log.Fatalf("failed to connect to capability registry at %s: %v", registryAddr, err)
	}
	defer registry.Close()

	session, err := coach.NewSession(coach.DefaultConfig(), registry, db, engine.DefaultRules())
	if err != nil {
		log.Fatalf("failed to build session: %v", err)
	}
	session.Start(ctx)

	sub := session.Events().Subscribe(64)
	go printEvents(sub)

	fmt.Println("CS2 coach ready.")
	fmt.Printf("  DB: %s | Registry: %s | Session: %s\n", dbPath, registryAddr, sessionID)
	fmt.Println("Feed snapshot JSON lines on stdin (EOF to exit).")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	start := time.Now()
	var seq uint64

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var fs replay.FixtureSnapshot
		if err := json.Unmarshal(line, &fs); err != nil {
			log.Printf("[MAIN] bad snapshot line: %v", err)
			continue
		}
		seq++
		if fs.SeqID == 0 {
			fs.SeqID = seq
		}

		snap := fs.ToSnapshot(start)
		if fs.OffsetMs == 0 {
			snap.Timestamp = time.Now()
		}
		snap.Raw = append(json.RawMessage(nil), line...)

		if err := session.OnSnapshot(ctx, snap); err != nil {
			log.Printf("[MAIN] snapshot seq=%d rejected: %v", snap.SeqID, err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[MAIN] stdin read error: %v", err)
	}

	session.Close()
}

// #endregion main

// #region events

// printEvents mirrors the outbound event stream onto stdout.
func printEvents(sub <-chan events.Event) {
	for ev := range sub {
		switch ev.Type {
		case events.DecisionMade:
			if d, ok := ev.Payload.(engine.Decision); ok {
				fmt.Printf("[decision] %s rule=%s priority=%s conf=%.2f\n",
					d.ID, d.RuleID, d.Priority, d.Confidence)
			}
		case events.ExecutionCompleted:
			if r, ok := ev.Payload.(plan.Result); ok {
				fmt.Printf("[plan] %s steps=%d success=%.0f%% %s\n",
					r.DecisionID, len(r.Steps), r.SuccessRate*100, r.Output.Message)
			}
		case events.OutcomeInferred:
			if o, ok := ev.Payload.(outcome.Outcome); ok {
				fmt.Printf("[outcome] %s %s followed=%v success=%v impact=%.2f\n",
					o.DecisionID, o.Status, o.Followed, o.Success, o.Impact)
			}
		case events.ErrorEvent:
			fmt.Printf("[error] %v\n", ev.Payload)
		}
	}
}

// #endregion events

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
