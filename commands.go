package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"appdocu/internal/config"
	"appdocu/internal/core"
	"appdocu/internal/report"
	"appdocu/internal/rest"
	"appdocu/internal/storage"
	"appdocu/pkg"
	"appdocu/src"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type env struct {
	config *src.Config
	logger *zerolog.Logger
	stdout io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"docu":        runDocu,
	"masteritems": runMasterItems,
	"apps":        runApps,
	"users":       runUsers,
	"glossaries":  runGlossaries,
}

// exportFlags are shared by docu and masteritems.
type exportFlags struct {
	appID       string
	profilePath string
	formats     []string
	columns     []string
	noVariables bool
}

func (f *exportFlags) register(flags *pflag.FlagSet, e *env) {
	flags.StringVar(&f.appID, "app", e.config.Qlik.AppID, "app id (defaults to QLIK_APP_ID)")
	flags.StringVar(&f.profilePath, "profile", e.config.Export.Profile, "report profile YAML")
	flags.StringSliceVar(&f.formats, "format", nil, "output formats: text, xlsx, json, redis (defaults to the profile)")
	flags.StringSliceVar(&f.columns, "columns", nil, "master item columns (defaults to the profile)")
	flags.BoolVar(&f.noVariables, "no-variables", false, "leave variables out")
}

// profile loads the report profile and applies the command line overrides.
func (f *exportFlags) profile() (*config.Profile, error) {
	if f.appID == "" {
		return nil, fmt.Errorf("--app or QLIK_APP_ID is required")
	}
	profile, err := config.LoadProfile(f.profilePath)
	if err != nil {
		return nil, err
	}
	if len(f.formats) > 0 {
		profile.Formats = f.formats
	}
	if len(f.columns) > 0 {
		profile.MasterItems.Columns = f.columns
	}
	if f.noVariables {
		profile.MasterItems.IncludeVariables = false
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func runDocu(ctx context.Context, e *env, args []string) error {
	var flags exportFlags
	var historyMaxAge time.Duration
	fs := pflag.NewFlagSet("docu", pflag.ContinueOnError)
	flags.register(fs, e)
	fs.DurationVar(&historyMaxAge, "history-max-age", 0, "drop JSON snapshots older than this (0 keeps all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	profile, err := flags.profile()
	if err != nil {
		return err
	}

	client := e.restClient()
	cfg := e.coreConfig(profile)
	p := core.NewProcessor(e.logger)
	steps := []plannedStep{
		{core.NewLookupStep(client), true},
		{core.NewEnumerateStep(e.opener(), e.logger), true},
	}
	if profile.Wants(config.FormatText) {
		steps = append(steps, plannedStep{core.NewTextStep(cfg, e.printer(report.WithMaxPerLine(cfg.MaxPerLine))), false})
	}
	if profile.Wants(config.FormatXLSX) {
		steps = append(steps, plannedStep{core.NewWorkbookStep(cfg), false})
	}

	var files *storage.FileStore
	if profile.Wants(config.FormatJSON) {
		files = storage.NewFileStore(filepath.Join(cfg.ExportDir, "snapshots"), e.logger)
		steps = append(steps, plannedStep{core.NewSnapshotStep("snapshot-json", files), false})
	}
	var cache *storage.RedisStore
	if profile.Wants(config.FormatRedis) {
		if e.config.Redis.URL == "" {
			e.logger.Warn().Msg("⚠️ redis format requested but REDIS_URL is not set, skipping")
		} else {
			cache, err = storage.NewRedisStore(ctx, e.config.Redis.URL, e.config.Redis.TTL)
			if err != nil {
				return err
			}
			defer cache.Close()
			steps = append(steps, plannedStep{core.NewSnapshotStep("snapshot-redis", cache), false})
		}
	}
	if err := addSteps(p, steps); err != nil {
		return err
	}

	out, err := p.Execute(ctx, core.Request{
		AppID:            flags.appID,
		IncludeVariables: profile.MasterItems.IncludeVariables,
		Columns:          profile.Columns(),
	})
	if err != nil {
		return err
	}

	if files != nil {
		e.reportHistory(files, flags.appID, historyMaxAge)
	}
	if cache != nil {
		if ttl, err := cache.TTL(ctx, flags.appID); err == nil {
			e.logger.Info().Dur("ttl", ttl).Msg("💾 snapshot cached in redis")
		}
	}
	e.summary(out)
	return nil
}

func runMasterItems(ctx context.Context, e *env, args []string) error {
	var flags exportFlags
	fs := pflag.NewFlagSet("masteritems", pflag.ContinueOnError)
	flags.register(fs, e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	profile, err := flags.profile()
	if err != nil {
		return err
	}

	cfg := e.coreConfig(profile)
	p := core.NewProcessor(e.logger)
	steps := []plannedStep{
		{core.NewAppNameStep(e.restClient()), true},
		{core.NewEnumerateStep(e.opener(), e.logger), true},
	}
	if profile.Wants(config.FormatText) {
		steps = append(steps, plannedStep{core.NewTableStep(e.stdout), false})
	}
	if profile.Wants(config.FormatXLSX) {
		steps = append(steps, plannedStep{core.NewWorkbookStep(cfg), false})
	}
	if err := addSteps(p, steps); err != nil {
		return err
	}

	out, err := p.Execute(ctx, core.Request{
		AppID:            flags.appID,
		IncludeVariables: profile.MasterItems.IncludeVariables,
		Columns:          profile.Columns(),
	})
	if err != nil {
		return err
	}
	e.summary(out)
	return nil
}

func runApps(ctx context.Context, e *env, args []string) error {
	var spaceID string
	fs := pflag.NewFlagSet("apps", pflag.ContinueOnError)
	fs.StringVar(&spaceID, "space", e.config.Qlik.SpaceID, "space id (defaults to QLIK_SPACE_ID, empty lists all apps)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := e.restClient()
	title := "All apps"
	if spaceID != "" {
		name, err := client.SpaceName(ctx, spaceID)
		if err != nil {
			return err
		}
		title = fmt.Sprintf("Apps in space %s", name)
	}
	apps, err := client.Apps(ctx, spaceID)
	if err != nil {
		return err
	}

	printer := e.printer()
	printer.Title(title, "")
	if err := printer.Err(); err != nil {
		return err
	}
	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, []string{app.Name, app.ID})
	}
	return report.Table(e.stdout, []string{"Name", "ID"}, rows)
}

func runUsers(ctx context.Context, e *env, args []string) error {
	var limit int
	var userID string
	fs := pflag.NewFlagSet("users", pflag.ContinueOnError)
	fs.IntVar(&limit, "limit", rest.DefaultLimit, "maximum number of users")
	fs.StringVar(&userID, "id", "", "show one user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := e.restClient()
	var records [][]pkg.KV
	if userID != "" {
		user, err := client.User(ctx, userID)
		if err != nil {
			return err
		}
		records = append(records, user.Fields())
	} else {
		users, err := client.Users(ctx, limit)
		if err != nil {
			return err
		}
		for _, u := range users {
			records = append(records, u.Fields())
		}
	}
	printer := e.printer()
	printer.Records("Users", records)
	return printer.Err()
}

func runGlossaries(ctx context.Context, e *env, args []string) error {
	var limit int
	var glossaryID, termID string
	fs := pflag.NewFlagSet("glossaries", pflag.ContinueOnError)
	fs.IntVar(&limit, "limit", rest.DefaultLimit, "maximum number of glossaries")
	fs.StringVar(&glossaryID, "id", "", "show one glossary")
	fs.StringVar(&termID, "term", "", "show one glossary term")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := e.restClient()
	printer := e.printer()
	switch {
	case termID != "":
		term, err := client.Term(ctx, termID)
		if err != nil {
			return err
		}
		printer.Records("Term", [][]pkg.KV{term.Fields()})
	case glossaryID != "":
		glossary, err := client.Glossary(ctx, glossaryID)
		if err != nil {
			return err
		}
		printer.Records("Glossary", [][]pkg.KV{glossary.Fields()})
	default:
		glossaries, err := client.Glossaries(ctx, limit)
		if err != nil {
			return err
		}
		records := make([][]pkg.KV, 0, len(glossaries))
		for _, g := range glossaries {
			records = append(records, g.Fields())
		}
		printer.Records("Glossaries", records)
	}
	return printer.Err()
}

// ====================== Private Methods ======================

type plannedStep struct {
	step     core.Step
	required bool
}

func addSteps(p *core.Processor, steps []plannedStep) error {
	for _, s := range steps {
		if err := p.AddStep(s.step, s.required); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) restClient() *rest.Client {
	return rest.NewClient(config.BuildRESTConfig(e.config.Qlik, e.logger))
}

func (e *env) opener() *core.EngineOpener {
	return &core.EngineOpener{
		Tenant: e.config.Qlik.Tenant,
		APIKey: e.config.Qlik.APIKey,
		Config: config.BuildSessionConfig(e.config.Qlik, e.logger),
	}
}

func (e *env) coreConfig(profile *config.Profile) core.Config {
	return core.Config{
		ExportDir:  e.config.Export.Dir,
		MaxPerLine: profile.Text.MaxPerLine,
		Sheets: core.SheetNames{
			MasterItems: profile.Sheets.MasterItems,
			Dimensions:  profile.Sheets.Dimensions,
			Measures:    profile.Sheets.Measures,
			Variables:   profile.Sheets.Variables,
		},
	}
}

// printer colours output only when stdout is a terminal.
func (e *env) printer(opts ...report.Option) *report.Printer {
	if f, ok := e.stdout.(*os.File); ok {
		return report.NewTerminal(f, opts...)
	}
	return report.NewPrinter(e.stdout, opts...)
}

func (e *env) summary(out *core.Output) {
	printer := e.printer()
	for _, path := range out.Files {
		printer.Title("📄 "+path, "")
	}
	for _, msg := range out.Errors {
		printer.Title("❗ "+msg, "")
	}
	printer.Title(fmt.Sprintf("%d item(s), %d skipped in %dms", out.Items, out.Skipped, out.ProcessingTime), "")
}

func (e *env) reportHistory(files *storage.FileStore, appID string, maxAge time.Duration) {
	if maxAge > 0 {
		removed, err := files.Prune(appID, maxAge)
		if err != nil {
			e.logger.Warn().Err(err).Msg("⚠️ failed to prune snapshot history")
		} else if removed > 0 {
			e.logger.Info().Int("removed", removed).Msg("🧹 pruned snapshot history")
		}
	}
	stats, err := files.Stats(appID)
	if err != nil {
		e.logger.Warn().Err(err).Msg("⚠️ failed to read snapshot history")
		return
	}
	e.logger.Debug().Interface("history", stats).Msg("💾 snapshot history")
}
