// Command events is the operational front end for the invitation service:
// it lists and mutates invitation records and drives message dispatch.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentdc/events/internal/events/app"
	"github.com/opentdc/events/internal/events/domain"
	"github.com/opentdc/events/pkg/principal"
	"github.com/opentdc/events/pkg/slogx"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := app.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			application.Logger().Error("error closing application", "error", err)
		}
	}()

	ctx = slogx.WithContext(ctx, application.Logger())
	ctx = principal.WithContext(ctx, cfg.Actor)

	if err := run(ctx, application, os.Args[1], os.Args[2:]); err != nil {
		application.Logger().Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.Application, command string, args []string) error {
	switch command {
	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		queryType := fs.String("query-type", "", "query type (accepted, not yet filtering)")
		query := fs.String("query", "", "query expression (accepted, not yet filtering)")
		position := fs.Int("position", 0, "offset into the sorted record set")
		size := fs.Int("size", 25, "maximum number of records to return")
		_ = fs.Parse(args)
		return printJSON(application.Invitations.List(ctx, *queryType, *query, *position, *size))

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		inv := invitationFlags(fs)
		_ = fs.Parse(args)
		created, err := application.Invitations.Create(ctx, *inv)
		if err != nil {
			return err
		}
		return printJSON(created)

	case "show":
		fs := flag.NewFlagSet("show", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		_ = fs.Parse(args)
		inv, err := application.Invitations.Read(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(inv)

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		inv := invitationFlags(fs)
		_ = fs.Parse(args)
		updated, err := application.Invitations.Update(ctx, *id, *inv)
		if err != nil {
			return err
		}
		return printJSON(updated)

	case "delete":
		fs := flag.NewFlagSet("delete", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		_ = fs.Parse(args)
		return application.Invitations.Delete(ctx, *id)

	case "message":
		fs := flag.NewFlagSet("message", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		_ = fs.Parse(args)
		body, err := application.Dispatch.Message(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Println(body)
		return nil

	case "send":
		fs := flag.NewFlagSet("send", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		_ = fs.Parse(args)
		return application.Dispatch.Send(ctx, *id)

	case "send-all":
		return application.Dispatch.SendAll(ctx)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		comment := fs.String("comment", "", "guest comment")
		_ = fs.Parse(args)
		inv, err := application.Invitations.Register(ctx, *id, *comment)
		if err != nil {
			return err
		}
		return printJSON(inv)

	case "deregister":
		fs := flag.NewFlagSet("deregister", flag.ExitOnError)
		id := fs.String("id", "", "invitation id")
		comment := fs.String("comment", "", "guest comment")
		_ = fs.Parse(args)
		inv, err := application.Invitations.Deregister(ctx, *id, *comment)
		if err != nil {
			return err
		}
		return printJSON(inv)

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// invitationFlags registers the mutable record fields on fs and returns
// an invitation populated once fs is parsed.
func invitationFlags(fs *flag.FlagSet) *domain.Invitation {
	inv := &domain.Invitation{}
	fs.StringVar(&inv.FirstName, "first-name", "", "guest first name")
	fs.StringVar(&inv.LastName, "last-name", "", "guest last name")
	fs.StringVar(&inv.Email, "email", "", "guest email address")
	fs.StringVar(&inv.Contact, "contact", "", "relationship owner (sender identity)")
	fs.StringVar((*string)(&inv.Salutation), "salutation", "", "FORMAL_MALE, FORMAL_FEMALE, INFORMAL_FEMALE, or INFORMAL_MALE")
	fs.StringVar((*string)(&inv.InvitationState), "state", "", "INITIAL, SENT, REGISTERED, or EXCUSED")
	fs.StringVar(&inv.Comment, "comment", "", "guest comment")
	fs.StringVar(&inv.InternalComment, "internal-comment", "", "internal note")
	return inv
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: events <command> [flags]

commands:
  list        page through invitation records
  create      create a new invitation record
  show        print one invitation record
  update      overwrite an invitation record's fields
  delete      remove an invitation record
  message     print the composed message for one invitation
  send        send the message for one invitation
  send-all    send messages for every invitation
  register    mark a sent invitation as registered
  deregister  mark a sent invitation as excused

configuration comes from EVENTS_* environment variables.`)
}
