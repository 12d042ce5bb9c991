package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"convoqa/internal/config"
	"convoqa/internal/domain"
	"convoqa/internal/interaction"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	buf := &bytes.Buffer{}
	app := newApp()
	app.Writer = buf
	argv := append([]string{
		"convoqa",
		"--config", filepath.Join(dir, "none.yaml"),
		"--data", filepath.Join("..", "..", "testdata", "university_qa.csv"),
		"--interactions", filepath.Join(dir, "interactions.csv"),
		"--log-level", "error",
		"--fallback", "off",
	}, args...)
	err := app.Run(context.Background(), argv)
	return buf.String(), err
}

func TestAsk_Match(t *testing.T) {
	out, err := runApp(t, "ask", "what", "are", "the", "library", "opening", "hours")
	gt.NoError(t, err)
	gt.S(t, out).Contains("The library is open from 8am")
	gt.S(t, out).Contains("score")
}

func TestAsk_NoMatch(t *testing.T) {
	out, err := runApp(t, "ask", "quantum chromodynamics")
	gt.NoError(t, err)
	gt.S(t, out).Contains(domain.NoInformationMessage)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	_, err := runApp(t, "ask")
	gt.Error(t, err)
}

func TestAsk_MissingDataset(t *testing.T) {
	dir := t.TempDir()
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run(context.Background(), []string{
		"convoqa",
		"--config", filepath.Join(dir, "none.yaml"),
		"--data", filepath.Join(dir, "missing.csv"),
		"--interactions", filepath.Join(dir, "interactions.csv"),
		"--fallback", "off",
		"ask", "tuition fees",
	})
	gt.Error(t, err)
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "interactions.csv")
	gt.NoError(t, interaction.NewCSVLogger(logPath).Log("Where is the library?", "Holborn"))

	buf := &bytes.Buffer{}
	app := newApp()
	app.Writer = buf
	err := app.Run(context.Background(), []string{
		"convoqa",
		"--config", filepath.Join(dir, "none.yaml"),
		"--interactions", logPath,
		"history",
	})
	gt.NoError(t, err)
	gt.S(t, buf.String()).Contains("Q: Where is the library?")
	gt.S(t, buf.String()).Contains("A: Holborn")
}

func TestLoad_InvalidFallback(t *testing.T) {
	_, err := runApp(t, "--fallback", "sometimes", "ask", "fees")
	gt.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "config.yaml")
	run := func(args ...string) error {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		return app.Run(context.Background(), append([]string{
			"convoqa",
			"--config", path,
			"--data", "kb.csv",
			"--fallback", "on-miss",
		}, args...))
	}

	gt.NoError(t, run("config", "init"))
	cfg, err := config.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Dataset.Path, "kb.csv")
	gt.Equal(t, cfg.Encyclopedia.Policy, config.FallbackOnMiss)
	gt.Equal(t, cfg.Encyclopedia.Sentences, 2)

	// an existing file is kept unless forced
	gt.Error(t, run("config", "init"))
	gt.NoError(t, run("config", "init", "--force"))
}
