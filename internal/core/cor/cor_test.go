// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendCommand appends its suffix to the string input.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	calls  int
}

func newAppend(name, suffix string) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix}
}

func (a *appendCommand) Execute(ctx cor.Context) {
	a.calls++
	ctx.Add(a.GetOutputParam(), ctx.Get(a.GetInputParam()).(string)+a.suffix)
}

// gatedCommand is never executable.
type gatedCommand struct {
	cor.BaseCommand
	calls int
}

func (g *gatedCommand) IsExecutable(cor.Context) bool { return false }
func (g *gatedCommand) Execute(cor.Context)           { g.calls++ }

type failingCommand struct {
	cor.BaseCommand
	err error
}

func (f *failingCommand) Execute(ctx cor.Context) { f.Fail(ctx, f.err) }

func newContext(ctx context.Context, in string) cor.Context {
	c := cor.NewBaseContext()
	c.SetContext(ctx)
	c.Add(cor.CtxIn, in)
	return c
}

func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("test")
	chain.AddCommand(newAppend("a", "-a")).AddCommand(newAppend("b", "-b"))

	ctx := newContext(context.Background(), "x")
	chain.Execute(ctx)

	require.False(t, ctx.HasErrors())
	assert.Equal(t, "x-a-b", ctx.Get(cor.CtxIn))
	assert.Nil(t, ctx.Get(cor.CtxOut))
}

func TestSkippedCommandKeepsInput(t *testing.T) {
	gated := &gatedCommand{BaseCommand: *cor.NewBaseCommand("gated")}
	chain := cor.NewBaseChain("test")
	chain.AddCommand(newAppend("a", "-a")).AddCommand(gated).AddCommand(newAppend("b", "-b"))

	ctx := newContext(context.Background(), "x")
	chain.Execute(ctx)

	assert.Equal(t, 0, gated.calls)
	assert.Equal(t, "x-a-b", ctx.Get(cor.CtxIn))
}

func TestNestedChains(t *testing.T) {
	inner := cor.NewBaseChain("inner")
	inner.AddCommand(newAppend("a", "-a")).AddCommand(newAppend("b", "-b"))
	outer := cor.NewBaseChain("outer")
	outer.AddCommand(inner).AddCommand(newAppend("c", "-c"))

	ctx := newContext(context.Background(), "x")
	outer.Execute(ctx)
	assert.Equal(t, "x-a-b-c", ctx.Get(cor.CtxIn))
}

func TestChainStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	after := newAppend("after", "-after")
	chain := cor.NewBaseChain("test")
	chain.AddCommand(&failingCommand{BaseCommand: *cor.NewBaseCommand("fail"), err: boom}).AddCommand(after)

	ctx := newContext(context.Background(), "x")
	chain.Execute(ctx)

	assert.Equal(t, 0, after.calls)
	assert.ErrorIs(t, ctx.Err(), boom)
	assert.Contains(t, ctx.GetErrors(), "fail")
}

func TestContinueOnFailure(t *testing.T) {
	after := newAppend("after", "-after")
	chain := cor.NewBaseChain("test")
	chain.ContinueOnFailure(true)
	chain.AddCommand(&failingCommand{BaseCommand: *cor.NewBaseCommand("fail"), err: errors.New("boom")}).AddCommand(after)

	ctx := newContext(context.Background(), "x")
	chain.Execute(ctx)

	assert.Equal(t, 1, after.calls)
	assert.True(t, ctx.HasErrors())
}

func TestChainStopsWhenCanceled(t *testing.T) {
	goCtx, cancel := context.WithCancel(context.Background())
	cancel()

	first := newAppend("a", "-a")
	chain := cor.NewBaseChain("test")
	chain.AddCommand(first)

	ctx := newContext(goCtx, "x")
	chain.Execute(ctx)

	assert.Equal(t, 0, first.calls)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, goCtx, ctx.GetContext())
}

func TestFirstErrorWins(t *testing.T) {
	ctx := cor.NewBaseContext()
	first := errors.New("first")
	ctx.AddError("a", first)
	ctx.AddError("b", errors.New("second"))
	ctx.AddError("c", nil)

	assert.Equal(t, first, ctx.Err())
	assert.Len(t, ctx.GetErrors(), 2)
}

func TestCloseRemovesTempPaths(t *testing.T) {
	dir := t.TempDir()
	scoped := filepath.Join(dir, "download")
	require.NoError(t, os.MkdirAll(scoped, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scoped, "audio.m4a"), []byte("data"), 0o600))
	file := filepath.Join(dir, "loose.txt")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o600))

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.AddTempFile(scoped)
	ctx.AddTempFile(file)
	ctx.AddTempFile(filepath.Join(dir, "missing"))
	ctx.Close()

	assert.NoDirExists(t, scoped)
	assert.NoFileExists(t, file)
	assert.Empty(t, ctx.GetTempFiles())
}
