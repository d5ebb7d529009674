package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/socialshields/mhdash/internal/client"
	"github.com/socialshields/mhdash/internal/labeling"
	"github.com/socialshields/mhdash/internal/models"
)

// labeler is a terminal labeling client. It fetches one batch of unlabelled
// posts, walks the user through labeling every post, submits the batch and
// only then allows fetching the next one.
func main() {
	server := flag.String("server", "http://localhost:8080", "dashboard API base URL")
	username := flag.String("username", "", "labeling username")
	password := flag.String("password", "", "password (optional, performs a login check)")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "-username is required")
		os.Exit(1)
	}

	api, err := client.New(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid server URL: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *password != "" {
		if _, err := api.Login(ctx, *username, *password); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("login ok")
	}

	session := labeling.NewSession()
	in := bufio.NewScanner(os.Stdin)

	if !loadBatch(ctx, api, session, *username) {
		return
	}

	for {
		printCurrent(session)
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit":
			return
		case "n":
			session.Next()
		case "p":
			session.Prev()
		case "g":
			if len(fields) < 2 {
				fmt.Println("usage: g <index>")
				continue
			}
			i, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("usage: g <index>")
				continue
			}
			if err := session.Seek(i - 1); err != nil {
				fmt.Println(err)
			}
		case "t", "type":
			setLabel(models.Box1Values, fields, session.SetBox1)
		case "s", "scale":
			setLabel(models.Box2Values, fields, session.SetBox2)
		case "submit":
			items, err := session.BeginSubmit()
			if err != nil {
				fmt.Println(err)
				continue
			}
			ts, err := api.SubmitLabels(ctx, *username, items)
			session.FinishSubmit(err)
			if err != nil {
				fmt.Printf("submission failed, batch kept for retry: %v\n", err)
				continue
			}
			fmt.Printf("batch submitted at %s; use 'next' to fetch more posts\n", ts.Format("15:04:05"))
		case "next":
			if err := session.NextBatch(); err != nil {
				fmt.Println(err)
				continue
			}
			if !loadBatch(ctx, api, session, *username) {
				return
			}
		default:
			fmt.Println("commands: n(ext) p(rev) g <i> t <n> s <n> submit next quit")
		}
	}
}

// loadBatch fetches and installs a batch. Returns false when the user is
// done and chose to quit.
func loadBatch(ctx context.Context, api *client.Client, session *labeling.Session, username string) bool {
	posts, err := api.UnlabelledPosts(ctx, username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch posts: %v\n", err)
		return false
	}
	if err := session.BeginBatch(posts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}
	if session.State() == labeling.StateDrained {
		fmt.Println("no more unlabelled posts, thank you!")
		return false
	}
	fmt.Printf("loaded %d posts\n", session.Len())
	return true
}

func printCurrent(session *labeling.Session) {
	post, record, err := session.Current()
	if err != nil {
		return
	}
	fmt.Printf("\n[%d/%d labeled, post %d/%d]\n", session.LabeledCount(), session.Len(), session.Cursor()+1, session.Len())
	fmt.Println(post.Title)
	if post.Body != "" {
		fmt.Println(post.Body)
	}
	fmt.Printf("type: %s  scale: %s\n", orDash(record.Box1), orDash(record.Box2))
	fmt.Printf("type values:  %s\n", numbered(models.Box1Values))
	fmt.Printf("scale values: %s\n", numbered(models.Box2Values))
}

func setLabel(values []string, fields []string, set func(string) error) {
	if len(fields) < 2 {
		fmt.Println("usage:", fields[0], "<number>")
		return
	}
	i, err := strconv.Atoi(fields[1])
	if err != nil || i < 1 || i > len(values) {
		fmt.Printf("pick 1-%d\n", len(values))
		return
	}
	if err := set(values[i-1]); err != nil {
		fmt.Println(err)
	}
}

func numbered(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d=%s", i+1, v)
	}
	return strings.Join(parts, " ")
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
