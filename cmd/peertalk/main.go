// Command peertalk is a minimal terminal client for one conversation. It
// exists to exercise the full stack end to end; real embeddings use the
// library packages directly.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"peertalk"
	"peertalk/attach"
	"peertalk/config"
	"peertalk/content"
	"peertalk/httpapi"
	"peertalk/readstate"
	"peertalk/storage"
	"peertalk/store"
)

func run(ctx context.Context) error {
	to := flag.String("to", "", "Counterpart user id to talk to")
	transcript := flag.String("transcript", "", "Write an HTML transcript to this file on exit")
	flag.Parse()

	if *to == "" {
		return errors.New("-to is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bbStorage, err := storage.NewBboltStorage(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = bbStorage.Close() }()

	session := peertalk.StaticSession{ID: cfg.UserID, AccessToken: cfg.Token}
	api := httpapi.New(cfg.BaseURL, session)

	var printMu sync.Mutex
	printed := 0

	var conv *peertalk.Conversation
	printNew := func() {
		printMu.Lock()
		defer printMu.Unlock()
		if conv == nil {
			return
		}
		entries := conv.Timeline()
		for _, e := range entries[printed:] {
			if e.Message == nil {
				fmt.Printf("--- %s ---\n", e.Day)
				continue
			}
			printMessage(cfg.UserID, e)
		}
		printed = len(entries)
	}

	client, err := peertalk.New(peertalk.Config{
		Backend:      api,
		Uploader:     api,
		Session:      session,
		ReadState:    readstate.NewTracker(bbStorage),
		ChannelURL:   cfg.ChannelURL,
		ChannelEvent: cfg.ChannelEvent,
		DialEvery:    cfg.DialEvery,
		OnUpdate:     func() { printNew() },
		OnError:      func(err error) { fmt.Fprintf(os.Stderr, "!! %v\n", err) },
	})
	if err != nil {
		return err
	}

	opened, err := client.Open(ctx, *to)
	if err != nil {
		return err
	}
	defer opened.Close()

	printMu.Lock()
	conv = opened
	printMu.Unlock()
	printNew()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			if err := handleLine(gCtx, conv, scanner.Text()); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(os.Stderr, "!! %v\n", err)
			}
		}
		return scanner.Err()
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gCtx.Err()
	})

	err = g.Wait()

	if *transcript != "" {
		if werr := writeTranscript(*transcript, conv.Timeline()); werr != nil {
			log.Printf("failed to write transcript: %v", werr)
		}
	}

	return err
}

var errQuit = errors.New("quit")

func handleLine(ctx context.Context, conv *peertalk.Conversation, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "/quit":
		return errQuit
	case strings.HasPrefix(line, "/attach "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		accepted, err := conv.Attach(attach.File{Name: path, Data: data})
		if err != nil {
			return err
		}
		fmt.Printf("attached %d file(s), %d pending\n", accepted, len(conv.Attachments()))
		return nil
	case line == "":
		return nil
	default:
		conv.SetText(line)
		return conv.Send(ctx)
	}
}

func printMessage(userID string, e store.Entry) {
	who := e.Message.SenderID
	if who == userID {
		who = "me"
	}
	suffix := ""
	if e.Message.Optimistic {
		suffix = " (sending)"
	}
	fmt.Printf("[%s] %s: %s%s\n", e.Message.SentAt.Local().Format("15:04"), who, e.Message.Text, suffix)
	for _, img := range e.Message.Images {
		fmt.Printf("    image: %s\n", img)
	}
	for _, v := range e.Message.Videos {
		fmt.Printf("    video: %s (%s)\n", v.URL, v.Title)
	}
}

func writeTranscript(path string, entries []store.Entry) error {
	var b strings.Builder
	b.WriteString("<article class=\"transcript\">\n")
	for _, e := range entries {
		if e.Message == nil {
			fmt.Fprintf(&b, "<h3>%s</h3>\n", e.Day)
			continue
		}
		html, err := content.Render(e.Message.Text)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "<section data-sender=%q>%s</section>\n", e.Message.SenderID, html)
	}
	b.WriteString("</article>\n")
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
