package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nanzhong/stonkboard/dashboard"
	"github.com/nanzhong/stonkboard/favorites"
	"github.com/nanzhong/stonkboard/httperr"
	"github.com/nanzhong/stonkboard/market"
	"github.com/phuslu/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var (
	// Explicit "quote" commands accept any case.
	symbolRegexp = regexp.MustCompile(`(?i)^\$?([a-z]{1,5})[^a-z]*$`)
	// Bare mentions only pick up upper case or $-prefixed tokens.
	strictSymbolRegexp = regexp.MustCompile(`^(?:\$([A-Za-z]{1,5})|([A-Z]{1,5}))[^A-Za-z]*$`)
)

var colorEmoji = map[string]string{
	dashboard.ColorBlue:   ":large_blue_circle:",
	dashboard.ColorOrange: ":large_orange_circle:",
	dashboard.ColorRed:    ":red_circle:",
	dashboard.ColorGrey:   ":white_circle:",
}

type command struct {
	name    string
	symbols []string
}

type eventHandler struct {
	signingSecret string

	log         *log.Logger
	slackClient *slack.Client
	dash        *dashboard.Dashboard
	store       favorites.Store
	now         func() time.Time
}

// NewEventHandler answers app mentions with quotes and manages a favorites
// list per Slack user.
func NewEventHandler(slackClient *slack.Client, signingSecret string, dash *dashboard.Dashboard, store favorites.Store, logger *log.Logger) http.Handler {
	return &eventHandler{
		signingSecret: signingSecret,

		log:         logger,
		slackClient: slackClient,
		dash:        dash,
		store:       store,
		now:         time.Now,
	}
}

func (h *eventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	event, err := h.validateRequest(r)
	if err != nil {
		switch {
		case errors.Is(err, slack.ErrMissingHeaders), errors.Is(err, slack.ErrExpiredTimestamp):
			h.respondWithErr(w, r, httperr.New(err, http.StatusBadRequest))
		default:
			h.respondWithErr(w, r, fmt.Errorf("validating request : %w", err))
		}
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		verificationEvent := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
		_ = json.NewEncoder(w).Encode(&slackevents.ChallengeResponse{Challenge: verificationEvent.Challenge})
	case slackevents.CallbackEvent:
		if event.InnerEvent.Type != slackevents.AppMention {
			h.respondWithErr(w, r, httperr.New(errors.New("unhandled event"), http.StatusNotImplemented))
			return
		}

		mention := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
		session := &dashboard.Session{ID: "slack:" + event.TeamID + ":" + mention.User}
		opts, err := h.reply(r.Context(), session, parseCommand(mention.Text))
		if err != nil {
			h.respondWithErr(w, r, httperr.NewWithMessage(err, "handling mention", http.StatusInternalServerError))
			return
		}

		opts = append(opts, slack.MsgOptionTS(mention.TimeStamp), slack.MsgOptionBroadcast())
		_, _, err = h.slackClient.PostMessageContext(r.Context(), mention.Channel, opts...)
		if err != nil {
			// Best effort attempt to send a message indicating failure
			_, _, _ = h.slackClient.PostMessageContext(
				r.Context(),
				mention.Channel, slack.MsgOptionText("Sorry, I messed something up... Try again later :poop:", true),
				slack.MsgOptionTS(mention.TimeStamp),
				slack.MsgOptionBroadcast(),
			)
			h.respondWithErr(w, r, httperr.NewWithMessage(err, "responding to mention", http.StatusInternalServerError))
			return
		}
		w.Write([]byte(`{}`))
	default:
		h.respondWithErr(w, r, httperr.New(errors.New("unhandled event"), http.StatusNotImplemented))
	}
}

func (h *eventHandler) reply(ctx context.Context, session *dashboard.Session, cmd command) ([]slack.MsgOption, error) {
	switch cmd.name {
	case "add", "remove":
		l, err := h.store.Update(ctx, session.ID, func(l favorites.List) favorites.List {
			session.Favorites = l
			for _, sym := range cmd.symbols {
				control := favorites.AddControl
				if cmd.name == "remove" {
					control = favorites.RemoveControl(market.NormalizeSymbol(sym))
				}
				dashboard.UpdateFavorites(session, favorites.Event{Trigger: &control, AddClicks: 1, Symbol: sym})
			}
			return session.Favorites
		})
		if err != nil {
			return nil, err
		}
		h.log.Info().Str("session", session.ID).Str("action", cmd.name).Strs("symbols", cmd.symbols).Msg("favorites updated")
		return []slack.MsgOption{slack.MsgOptionText(favoritesText(l), false)}, nil
	case "list":
		l, err := h.store.Load(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return []slack.MsgOption{slack.MsgOptionText(favoritesText(l), false)}, nil
	}

	if len(cmd.symbols) == 0 {
		return []slack.MsgOption{
			slack.MsgOptionText("Sorry, I didn't find any valid market symbols in your message. :cry:", false),
		}, nil
	}

	// A month of history is enough to resolve the recent price.
	now := h.now()
	rng := market.RangeFrom(now.AddDate(0, -1, 0), now)

	messageBlocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "Found the following quotes :chart_with_upwards_trend:", false, false),
			nil,
			nil,
		),
	}
	for i, sym := range cmd.symbols {
		view := h.dash.UpdateQuote(ctx, sym, rng)
		messageBlocks = append(messageBlocks, quoteBlocks(view)...)
		if i != len(cmd.symbols)-1 {
			messageBlocks = append(messageBlocks, slack.NewDividerBlock())
		}
	}
	return []slack.MsgOption{slack.MsgOptionBlocks(messageBlocks...)}, nil
}

func quoteBlocks(view dashboard.QuoteView) []slack.Block {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, view.Symbol, false, false))
	if view.Status != dashboard.StatusOK {
		lines := nonEmpty(view.CompanyName, view.ChartMessage)
		return []slack.Block{
			header,
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false), nil, nil),
		}
	}

	recommendation := colorEmoji[view.RecommendationColor] + " " + view.Recommendation
	lines := nonEmpty(view.CompanyName, view.Price, view.Industry, view.Dividend, recommendation, view.MarketCap, view.PERatio)
	return []slack.Block{
		header,
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false), nil, nil),
	}
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func favoritesText(l favorites.List) string {
	if len(l) == 0 {
		return "You have no favorite stocks yet."
	}
	return "Favorite stocks: " + strings.Join(l, ", ")
}

func (h *eventHandler) validateRequest(r *http.Request) (slackevents.EventsAPIEvent, error) {
	if r.Method != http.MethodPost {
		return slackevents.EventsAPIEvent{}, httperr.New(fmt.Errorf("invalid method: %s", r.Method), http.StatusMethodNotAllowed)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return slackevents.EventsAPIEvent{}, fmt.Errorf("reading request body: %w", err)
	}
	defer r.Body.Close()

	if h.signingSecret == "" {
		h.log.Warn().Msg("no slack signing secret configured, skipping signature verification")
	} else {
		sv, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
		if err != nil {
			return slackevents.EventsAPIEvent{}, fmt.Errorf("building slack secrets verifier: %w", err)
		}

		if _, err := sv.Write(body); err != nil {
			return slackevents.EventsAPIEvent{}, httperr.NewWithMessage(err, "verifying signature", http.StatusInternalServerError)
		}
		if err := sv.Ensure(); err != nil {
			return slackevents.EventsAPIEvent{}, httperr.NewWithMessage(err, "verifying signature", http.StatusUnauthorized)
		}
	}

	// NOTE prefer verifying signature over verification token.
	return slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
}

func (h *eventHandler) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Warn().Str("method", r.Method).Str("url", r.URL.String()).Err(err).Msg("responding with error")
	if werr := httperr.Write(w, err); werr != nil {
		h.log.Error().Err(werr).Msg("writing error response")
	}
}

// parseCommand reads a mention. Recognized forms:
//
//	quote nvda aapl
//	fav add NVDA / fav rm NVDA
//	favs
//
// Anything else is scanned for upper case or $-prefixed symbols.
func parseCommand(text string) command {
	var tokens []string
	for _, t := range strings.Fields(text) {
		if strings.HasPrefix(t, "<@") {
			continue
		}
		tokens = append(tokens, t)
	}
	if len(tokens) == 0 {
		return command{name: "quote"}
	}

	switch strings.ToLower(tokens[0]) {
	case "quote", "q":
		return command{name: "quote", symbols: filterPossibleSymbols(tokens[1:], symbolRegexp)}
	case "favs", "favorites":
		return command{name: "list"}
	case "fav", "favorite":
		if len(tokens) < 2 {
			return command{name: "list"}
		}
		symbols := filterPossibleSymbols(tokens[2:], symbolRegexp)
		switch strings.ToLower(tokens[1]) {
		case "add":
			return command{name: "add", symbols: symbols}
		case "rm", "remove", "del":
			return command{name: "remove", symbols: symbols}
		}
		return command{name: "list"}
	}
	return command{name: "quote", symbols: filterPossibleSymbols(tokens, strictSymbolRegexp)}
}

func filterPossibleSymbols(tokens []string, re *regexp.Regexp) []string {
	var possible []string
	for _, token := range tokens {
		matches := re.FindStringSubmatch(token)
		if matches == nil {
			continue
		}
		for _, m := range matches[1:] {
			if m != "" {
				possible = append(possible, market.NormalizeSymbol(m))
				break
			}
		}
	}
	return possible
}
