package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/goliatone/go-ticketform"
	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/store/jsonfile"
)

// app carries the state shared by every command once configuration is read.
type app struct {
	config *viper.Viper
	logger *slog.Logger
	engine *ticketform.Engine
	// store is set when the JSON file backend is in use.
	store *jsonfile.Store
}

func (a *app) init() error {
	logger, err := newLogger(os.Stderr, a.config.GetString("log-level"), a.config.GetString("log-format"))
	if err != nil {
		return err
	}
	a.logger = logger

	options := []ticketform.Option{ticketform.WithLogger(logger)}
	if dir := strings.TrimSpace(a.config.GetString("templates")); dir != "" {
		options = append(options, ticketform.WithTemplateFS(os.DirFS(dir)))
	}

	if base := strings.TrimSpace(a.config.GetString("catalog-url")); base != "" {
		client, err := catalog.NewHTTPClient(base)
		if err != nil {
			return err
		}
		options = append(options, ticketform.WithCatalog(client), ticketform.WithTickets(client))
		logger.Debug("using http catalog", "url", base)
	} else {
		path, err := filepath.Abs(a.config.GetString("store"))
		if err != nil {
			return fmt.Errorf("invalid store path: %w", err)
		}
		a.store = jsonfile.New(path, jsonfile.WithLogger(logger))
		options = append(options, ticketform.WithCatalog(a.store), ticketform.WithTickets(a.store))
		logger.Debug("using json store", "path", path)
	}

	engine, err := ticketform.New(options...)
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}

func (a *app) requireStore(command string) (*jsonfile.Store, error) {
	if a.store == nil {
		return nil, fmt.Errorf("%s requires the JSON store backend (drop --catalog-url)", command)
	}
	return a.store, nil
}
