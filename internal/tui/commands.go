package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgorozz/notflix/internal/client"
	"github.com/dgorozz/notflix/internal/models"
)

// Backend is the part of the API client the shell drives.
type Backend interface {
	ListShows(ctx context.Context) ([]models.Show, error)
	GetShow(ctx context.Context, id int64) (*models.Show, error)
	StartShow(ctx context.Context, id int64) (*models.Session, error)
	ListSessions(ctx context.Context, state models.SessionState) ([]models.Session, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	DeleteSession(ctx context.Context, id int64) error
	Next(ctx context.Context, id int64) (*models.Session, error)
	Previous(ctx context.Context, id int64) (*models.Session, error)
	Restart(ctx context.Context, id int64) (*models.Session, error)
	Goto(ctx context.Context, id int64, season, episode int) (*models.Session, error)
}

const showUsage = `show list               get show list
show <id> info          get show info
show <id> start         start watching a show`

const sessionUsage = `session list [watching|finished]      list sessions
session <id> info                     session info
session <id> delete                   delete session
session <id> next                     mark episode watched
session <id> previous                 previous episode
session <id> restart                  restart show
session <id> goto <season> <episode>  go to a specific episode`

type commandKind int

const (
	cmdShowList commandKind = iota
	cmdShowInfo
	cmdShowStart
	cmdSessionList
	cmdSessionInfo
	cmdSessionDelete
	cmdSessionNext
	cmdSessionPrevious
	cmdSessionRestart
	cmdSessionGoto
	cmdHelp
	cmdClear
	cmdQuit
)

// command is a parsed shell line.
type command struct {
	kind    commandKind
	id      int64
	state   models.SessionState
	season  int
	episode int
}

// usageError carries the usage text to print after a malformed command.
type usageError struct {
	msg   string
	usage string
}

func (e *usageError) Error() string {
	return e.msg
}

func parseCommand(line string) (command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return command{}, errEmptyCommand
	}

	switch tokens[0] {
	case "help", "?":
		return command{kind: cmdHelp}, nil
	case "clear":
		return command{kind: cmdClear}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	case "show":
		return parseShow(tokens[1:])
	case "session":
		return parseSession(tokens[1:])
	default:
		return command{}, fmt.Errorf("unknown command: %s", tokens[0])
	}
}

var errEmptyCommand = errors.New("empty command")

func parseShow(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, &usageError{msg: "Not valid format", usage: showUsage}
	}
	if args[0] == "list" {
		return command{kind: cmdShowList}, nil
	}

	id, err := parseID(args[0])
	if err != nil {
		return command{}, &usageError{msg: "Unknown action: " + args[0], usage: showUsage}
	}
	if len(args) < 2 {
		return command{}, &usageError{msg: "Not valid format", usage: showUsage}
	}

	switch args[1] {
	case "info":
		return command{kind: cmdShowInfo, id: id}, nil
	case "start":
		return command{kind: cmdShowStart, id: id}, nil
	default:
		return command{}, &usageError{msg: "Unknown action: " + args[1], usage: showUsage}
	}
}

func parseSession(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, &usageError{msg: "Not valid format", usage: sessionUsage}
	}
	if args[0] == "list" {
		c := command{kind: cmdSessionList}
		if len(args) > 1 {
			state, err := models.ParseSessionState(args[1])
			if err != nil {
				return command{}, &usageError{msg: "Unknown state: " + args[1], usage: sessionUsage}
			}
			c.state = state
		}
		return c, nil
	}

	id, err := parseID(args[0])
	if err != nil || len(args) < 2 {
		return command{}, &usageError{msg: "Not valid format", usage: sessionUsage}
	}

	c := command{id: id}
	switch args[1] {
	case "info":
		c.kind = cmdSessionInfo
	case "delete":
		c.kind = cmdSessionDelete
	case "next":
		c.kind = cmdSessionNext
	case "previous":
		c.kind = cmdSessionPrevious
	case "restart":
		c.kind = cmdSessionRestart
	case "goto":
		if len(args) != 4 {
			return command{}, &usageError{msg: "Not valid format", usage: sessionUsage}
		}
		season, serr := strconv.Atoi(args[2])
		episode, eerr := strconv.Atoi(args[3])
		if serr != nil || eerr != nil {
			return command{}, &usageError{msg: "Season and episode must be numbers", usage: sessionUsage}
		}
		c.kind = cmdSessionGoto
		c.season, c.episode = season, episode
	default:
		return command{}, &usageError{msg: "Unknown action: " + args[1], usage: sessionUsage}
	}
	return c, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// run executes a backend command and returns the lines to print. Local
// commands (help, clear, quit) are handled by the model and never reach run.
func run(ctx context.Context, api Backend, c command) ([]string, error) {
	switch c.kind {
	case cmdShowList:
		shows, err := api.ListShows(ctx)
		if err != nil {
			return nil, err
		}
		if len(shows) == 0 {
			return []string{"No shows in catalog"}, nil
		}
		lines := make([]string, 0, len(shows))
		for _, s := range shows {
			lines = append(lines, fmt.Sprintf("%d: %s (%s)", s.ID, s.Name, s.Genre))
		}
		return lines, nil

	case cmdShowInfo:
		s, err := api.GetShow(ctx, c.id)
		if client.IsStatus(err, http.StatusNotFound) {
			return []string{"Show not found in catalog"}, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{
			s.Name,
			"Description: " + s.Description,
			"Genre: " + s.Genre,
			fmt.Sprintf("Seasons: %d %v", s.Seasons(), s.EpisodeCounts),
		}, nil

	case cmdShowStart:
		sess, err := api.StartShow(ctx, c.id)
		switch {
		case client.IsStatus(err, http.StatusNotFound):
			return []string{"Show not found in catalog"}, nil
		case client.IsStatus(err, http.StatusConflict):
			return []string{"You are already watching this show"}, nil
		case err != nil:
			return nil, err
		}
		name := ""
		if sess.Show != nil {
			name = sess.Show.Name
		}
		return []string{
			fmt.Sprintf("Session initialized (id=%d) for %s", sess.ID, name),
			fmt.Sprintf("Starting on season %d, episode %d", sess.Season, sess.Episode),
		}, nil

	case cmdSessionList:
		list, err := api.ListSessions(ctx, c.state)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return []string{"No sessions"}, nil
		}
		lines := make([]string, 0, len(list))
		for _, s := range list {
			lines = append(lines, sessionRow(s))
		}
		return lines, nil

	case cmdSessionInfo:
		s, err := api.GetSession(ctx, c.id)
		if client.IsStatus(err, http.StatusNotFound) {
			return []string{"That session does not exist!"}, nil
		}
		if err != nil {
			return nil, err
		}
		return sessionInfo(s), nil

	case cmdSessionDelete:
		err := api.DeleteSession(ctx, c.id)
		if client.IsStatus(err, http.StatusNotFound) {
			return []string{"That session does not exist!"}, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{"Session removed successfully!"}, nil

	case cmdSessionNext:
		s, err := api.Next(ctx, c.id)
		if client.IsStatus(err, http.StatusBadRequest) {
			return []string{"Show already finished! Restart session to watch again"}, nil
		}
		if err != nil {
			return nil, sessionErr(err)
		}
		if s.Finished() {
			return []string{"Episode watched. Show finished, congratulations!!"}, nil
		}
		return []string{"Episode watched. Next again to watch " + s.Label()}, nil

	case cmdSessionPrevious:
		s, err := api.Previous(ctx, c.id)
		if err != nil {
			return nil, sessionErr(err)
		}
		return []string{"Moved back one episode to " + s.Label()}, nil

	case cmdSessionRestart:
		s, err := api.Restart(ctx, c.id)
		if err != nil {
			return nil, sessionErr(err)
		}
		return []string{"Restarted to " + s.Label()}, nil

	case cmdSessionGoto:
		s, err := api.Goto(ctx, c.id, c.season, c.episode)
		if err != nil {
			return nil, sessionErr(err)
		}
		return []string{"Moved to " + s.Label()}, nil
	}
	return nil, fmt.Errorf("unhandled command %d", c.kind)
}

// rejectedError is an API refusal the shell shows as-is, without an
// "Error:" prefix.
type rejectedError struct {
	msg string
}

func (e *rejectedError) Error() string {
	return e.msg
}

// sessionErr turns API errors from session navigation into readable ones.
func sessionErr(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return &rejectedError{msg: "session does not exist"}
	case http.StatusBadRequest:
		return &rejectedError{msg: apiErr.Message}
	}
	return err
}

// errorLine renders a command failure for the output pane.
func errorLine(err error) string {
	var rejected *rejectedError
	if errors.As(err, &rejected) {
		return capitalize(rejected.msg)
	}
	return "Error: " + err.Error()
}

func sessionRow(s models.Session) string {
	name := strconv.FormatInt(s.ShowID, 10)
	if s.Show != nil {
		name = s.Show.Name
	}
	return fmt.Sprintf("%d | %s | %s | %s", s.ID, name, s.Label(), s.State)
}

func sessionInfo(s *models.Session) []string {
	finished := "-"
	if s.EndDate != nil {
		finished = formatUnix(*s.EndDate)
	}
	return []string{
		fmt.Sprintf("Session ID: %d", s.ID),
		fmt.Sprintf("Show id: %d", s.ShowID),
		"State: " + string(s.State),
		fmt.Sprintf("Season: %d", s.Season),
		fmt.Sprintf("Episode: %d", s.Episode),
		"Started at: " + formatUnix(s.StartDate),
		"Finished at: " + finished,
	}
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).Format("2006-01-02 15:04")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
