package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stemsi/exstem-prep/internal/bank"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/console"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/normalizer"
	"github.com/stemsi/exstem-prep/internal/repository"
	"github.com/stemsi/exstem-prep/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		subject string
		mode    string
		limit   int
		shuffle bool
		list    bool
	)
	flag.StringVar(&subject, "subject", "", "Subject id to practise")
	flag.StringVar(&mode, "mode", string(model.ModeTest), "Quiz mode: test or learning")
	flag.IntVar(&limit, "limit", 0, "Use at most this many questions (0 for all)")
	flag.BoolVar(&shuffle, "shuffle", false, "Shuffle question order")
	flag.BoolVar(&list, "list", false, "List configured subjects and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so they do not interleave with the quiz.
	log := logger.New(os.Stderr, "warn", cfg.LogFormat, term.IsTerminal(int(os.Stderr.Fd())))

	norm := normalizer.New(log,
		normalizer.WithStrictAnswers(cfg.StrictAnswers),
		normalizer.WithLenientAnswers(cfg.LenientAnswers),
	)
	loader := bank.NewLoader(cfg.BankDir, cfg.SubjectFiles, cfg.Marking.CSATSubjects, norm, nil, 0, log)

	if list || subject == "" {
		for _, s := range loader.Subjects() {
			fmt.Printf("%-12s %s\n", s.ID, s.FileName)
		}
		if !list {
			fmt.Fprintln(os.Stderr, "\nchoose one with -subject")
			os.Exit(2)
		}
		return
	}
	if !model.Mode(mode).Valid() {
		fmt.Fprintf(os.Stderr, "unknown mode %q (expected test or learning)\n", mode)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open result store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	quizService := service.NewQuizService(loader, service.NewDirectSink(store), cfg.Marking.EngineOptions(), nil, log)
	defer quizService.Close()

	runner := console.NewRunner(quizService, os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	req := model.StartQuizRequest{SubjectID: subject, Mode: model.Mode(mode), Limit: limit, Shuffle: shuffle}
	if _, err := runner.Start(ctx, req); err != nil {
		fmt.Fprintf(os.Stderr, "start quiz: %v\n", err)
		os.Exit(1)
	}

	res, err := runner.Play(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quiz: %v\n", err)
		return
	}
	if res != nil {
		fmt.Printf("\nSaved as %s\n", res.ID)
	}
}
