package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a manual login is needed but nobody can press Enter.
var ErrNotInteractive = errors.New("no saved session and stdin is not a terminal; run once interactively to log in")

// Jar is the part of the browser a session provider needs.
type Jar interface {
	Cookies() ([]*proto.NetworkCookie, error)
	SetCookies(cookies []*proto.NetworkCookie) error
	// Visit opens url in a tab that stays open.
	Visit(ctx context.Context, url string) error
}

// Provider establishes an authenticated session in the browser.
type Provider interface {
	Prepare(ctx context.Context, jar Jar) error
}

// Saved restores a session persisted by an earlier run.
type Saved struct {
	Store   *Store
	HomeURL string
}

func (p *Saved) Prepare(ctx context.Context, jar Jar) error {
	cookies, err := p.Store.Load()
	if err != nil {
		return err
	}
	if err := jar.SetCookies(cookies); err != nil {
		return fmt.Errorf("restore session cookies: %w", err)
	}
	log.Println("Loaded existing authentication session.")

	if err := jar.Visit(ctx, p.HomeURL); err != nil {
		log.Printf("WARN: Could not open home page: %v", err)
	}
	return nil
}

// Interactive opens the login page and waits for the operator to log in by hand.
type Interactive struct {
	Store    *Store
	LoginURL string
	In       io.Reader
	Out      io.Writer
}

func (p *Interactive) Prepare(ctx context.Context, jar Jar) error {
	if f, ok := p.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return ErrNotInteractive
	}

	if err := jar.Visit(ctx, p.LoginURL); err != nil {
		log.Printf("WARN: Could not open login page: %v", err)
	}
	fmt.Fprintln(p.Out, "No saved session found. Please log in manually in the opened browser window.")
	fmt.Fprint(p.Out, "Press Enter after you have successfully logged in...")

	if err := waitForEnter(ctx, p.In); err != nil {
		return err
	}

	cookies, err := jar.Cookies()
	if err != nil {
		return fmt.Errorf("read session cookies: %w", err)
	}
	if err := p.Store.Save(cookies); err != nil {
		return err
	}
	log.Printf("Session saved to %s", p.Store.Path)
	return nil
}

// waitForEnter returns once a line was read from in, or ctx is done.
func waitForEnter(ctx context.Context, in io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = ErrNotInteractive
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Select picks Saved when a blob exists and Interactive otherwise.
func Select(store *Store, homeURL, loginURL string, in io.Reader, out io.Writer) Provider {
	if store.Exists() {
		return &Saved{Store: store, HomeURL: homeURL}
	}
	return &Interactive{Store: store, LoginURL: loginURL, In: in, Out: out}
}
