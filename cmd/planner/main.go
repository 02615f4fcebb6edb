// Command planner is a terminal client for the travel planner API. The
// session is kept in a file between runs and refreshed transparently.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/client"
)

type cliConfig struct {
	APIURL      string `env:"PLANNER_API_URL" envDefault:"http://localhost:8080"`
	SessionFile string `env:"PLANNER_SESSION_FILE"`
}

const usage = `usage: planner <command> [flags]

commands:
  register    create an account and sign in
  login       sign in
  logout      sign out and forget the stored session
  me          show the signed-in user
  plans       list your travel plans
  generate    create a plan with generated recommendations
  delete ID   delete one of your plans
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "planner:", err)
		os.Exit(1)
	}
}

type app struct {
	in  *bufio.Reader
	out io.Writer
	api *client.Client
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}
	_ = godotenv.Load()
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return err
	}
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		cfg.SessionFile = filepath.Join(dir, "ai-travel-planner", "session.json")
	}

	store, err := client.NewFileStorage(cfg.SessionFile)
	if err != nil {
		return err
	}
	sess := client.NewSession(cfg.APIURL, store, client.WithLogger(zap.NewNop()))
	a := &app{in: bufio.NewReader(stdin), out: stdout, api: client.New(sess, nil)}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "logout":
		sess.Logout(ctx)
		fmt.Fprintln(a.out, "Signed out.")
		return nil
	case "me":
		return a.me(ctx)
	case "plans":
		return a.plans(ctx)
	case "generate":
		return a.generate(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) register(ctx context.Context) error {
	var req client.RegisterRequest
	var err error
	if req.Email, err = prompt(a.in, a.out, "Email"); err != nil {
		return err
	}
	if req.FirstName, err = prompt(a.in, a.out, "First name"); err != nil {
		return err
	}
	if req.LastName, err = prompt(a.in, a.out, "Last name"); err != nil {
		return err
	}
	if req.Password, err = promptPassword(a.out, "Password"); err != nil {
		return err
	}
	u, err := a.api.Session.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s.\n", displayName(u))
	return nil
}

func (a *app) login(ctx context.Context) error {
	email, err := prompt(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	pw, err := promptPassword(a.out, "Password")
	if err != nil {
		return err
	}
	u, err := a.api.Session.Login(ctx, email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s.\n", displayName(u))
	return nil
}

func (a *app) me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return signInHint(err)
	}
	fmt.Fprintf(a.out, "%s <%s>\nmember since %s\n", displayName(u), u.Email, u.CreatedAt.Format(time.DateOnly))
	return nil
}

func (a *app) plans(ctx context.Context) error {
	ps, err := a.api.ListPlans(ctx)
	if err != nil {
		return signInHint(err)
	}
	if len(ps) == 0 {
		fmt.Fprintln(a.out, "No plans yet.")
		return nil
	}
	for _, p := range ps {
		fmt.Fprintf(a.out, "%4d  %-30s %-20s %s..%s\n", p.ID, p.Title, p.Destination,
			p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly))
	}
	return nil
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(a.out)
	dest := fs.String("to", "", "destination (required)")
	from := fs.String("from", "", "start date YYYY-MM-DD (required)")
	until := fs.String("until", "", "end date YYYY-MM-DD (required)")
	style := fs.String("style", "", "travel style")
	group := fs.String("group", "", "group size")
	budget := fs.Float64("budget", 0, "budget in dollars")
	prefs := fs.String("prefs", "", "free-form preferences")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dest == "" || *from == "" || *until == "" {
		return errors.New("generate needs -to, -from and -until")
	}
	start, err := time.Parse(time.DateOnly, *from)
	if err != nil {
		return fmt.Errorf("bad -from: %w", err)
	}
	end, err := time.Parse(time.DateOnly, *until)
	if err != nil {
		return fmt.Errorf("bad -until: %w", err)
	}

	in := client.GenerateInput{Destination: *dest, StartDate: start, EndDate: end}
	in.TravelStyle = optional(*style)
	in.GroupSize = optional(*group)
	in.Preferences = optional(*prefs)
	if *budget > 0 {
		in.Budget = budget
	}

	p, err := a.api.GeneratePlan(ctx, in)
	if err != nil {
		return signInHint(err)
	}
	fmt.Fprintf(a.out, "Created plan %d: %s\n", p.ID, p.Title)
	if p.AIRecommendations != nil {
		fmt.Fprintln(a.out, *p.AIRecommendations)
	}
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("delete needs a plan id")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad plan id %q", args[0])
	}
	if err := a.api.DeletePlan(ctx, id); err != nil {
		return signInHint(err)
	}
	fmt.Fprintf(a.out, "Deleted plan %d.\n", id)
	return nil
}

func signInHint(err error) error {
	if client.IsUnauthorized(err) {
		return errors.New("not signed in; run `planner login`")
	}
	return err
}

func displayName(u *client.User) string {
	if u == nil {
		return "traveller"
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
