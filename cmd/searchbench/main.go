package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/Ludeme/Ludii-sub005/engine"
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/Ludeme/Ludii-sub005/umpire"
	"github.com/rs/zerolog"
)

func main() {
	// --- Flags ---
	depthFlag := flag.Int("depth", 2, "search depth in own moves")
	repeatFlag := flag.Int("repeat", 1, "number of searches to run")
	pliesFlag := flag.Int("plies", 0, "random plies played under the umpire before searching")
	workersFlag := flag.Int("workers", runtime.NumCPU(), "root search workers")
	moveTimeFlag := flag.Duration("movetime", 0, "time limit per search (0 = none)")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	flag.Parse()

	if *depthFlag <= 0 || *depthFlag > engine.MaxDepth {
		log.Fatalf("depth must be in 1..%d, got %d", engine.MaxDepth, *depthFlag)
	}

	// --- Optional CPU profiling setup ---
	if *cpuProfile != "" {
		cpuFile, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}()
	}

	cfg := engine.DefaultConfig()
	cfg.SearchDepth = *depthFlag
	cfg.Workers = *workersFlag
	cfg.MoveTime = *moveTimeFlag
	cfg.RandomTieBreak = false
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	tables := gm.NewTables()

	fmt.Printf("searchbench: depth=%d repeat=%d plies=%d workers=%d\n", cfg.SearchDepth, *repeatFlag, *pliesFlag, cfg.Workers)

	startAll := time.Now()
	for i := 0; i < *repeatFlag; i++ {
		// Fresh belief for each run
		board, err := position(cfg, tables, *pliesFlag)
		if err != nil {
			log.Fatalf("setup: %v", err)
		}
		searcher := engine.NewSearcher(cfg, zerolog.Nop())

		iterStart := time.Now()
		bestMove, value, err := searcher.BestMove(context.Background(), board)
		if err != nil {
			log.Fatalf("search: %v", err)
		}
		iterElapsed := time.Since(iterStart)

		fmt.Printf("iteration %d: bestmove %v value=%.4f nodes=%d time=%v\n",
			i+1, bestMove, value, searcher.Stats().Nodes.Load(), iterElapsed)
	}
	fmt.Printf("total time: %v\n", time.Since(startAll))

	// --- Optional heap profile at the end ---
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer f.Close()

		runtime.GC() // get up-to-date heap info
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
	}
}

// position plays random legal moves under the umpire and returns the
// belief of the side to move afterwards.
func position(cfg engine.Config, tables *gm.Tables, plies int) (*engine.ProbabilityBoard, error) {
	ump := umpire.New(tables, zerolog.Nop())
	var players [2]*engine.Player
	for _, c := range []gm.Color{gm.White, gm.Black} {
		players[c] = engine.NewPlayer(cfg, tables, engine.GameConfiguration{Side: c}, zerolog.Nop())
	}
	for i := 0; i < plies; i++ {
		legal := ump.Legal()
		if len(legal) == 0 {
			break
		}
		side := ump.ToMove()
		a, err := ump.Try(legal[i*7%len(legal)])
		if err != nil {
			return nil, err
		}
		if err := players[side].Handle(engine.LegalMove{Move: a.Move, Capture: a.Capture, Checks: a.Checks, PawnTries: a.PawnTries}); err != nil {
			return nil, err
		}
		if err := players[side.Other()].Handle(engine.OpponentMove{CaptureSquare: a.CaptureSquare, Checks: a.Checks, PawnTries: a.PawnTries}); err != nil {
			return nil, err
		}
		if a.Outcome != umpire.Ongoing {
			break
		}
	}
	return players[ump.ToMove()].Board(), nil
}
