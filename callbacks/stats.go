package callbacks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/effective-security/finrecon/assistants"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/llmutils"
	"github.com/effective-security/finrecon/tools"
)

// TimeNowFn is used to measure the run duration
var TimeNowFn = time.Now

// RunStats is the usage of one assistant run
type RunStats struct {
	Duration time.Duration

	LLMCalls        uint32
	MessagesSent    uint64
	LLMBytesOut     uint64
	LLMBytesIn      uint64
	LLMInputTokens  int64
	LLMOutputTokens int64
	LLMTotalTokens  int64

	ToolCalls          uint32
	ToolCallsSucceeded uint32
	ToolCallsFailed    uint32
	ToolNotFound       uint32
}

// String returns the summary of the run
func (s RunStats) String() string {
	return fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d\n"+
		"LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d\n"+
		"Duration: %s\n",
		s.ToolCalls, s.ToolCallsFailed, s.ToolNotFound,
		s.LLMCalls, s.MessagesSent, s.LLMBytesOut, s.LLMBytesIn,
		s.LLMInputTokens, s.LLMOutputTokens, s.LLMTotalTokens,
		s.Duration.Round(time.Millisecond),
	)
}

// Stats is a callback handler that accumulates the usage of a run.
type Stats struct {
	lock    sync.Mutex
	started time.Time
	stats   RunStats
}

func NewStats() *Stats {
	return &Stats{}
}

// Stats returns a snapshot of the collected usage
func (l *Stats) Stats() RunStats {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.stats
}

func (l *Stats) OnAssistantStart(ctx context.Context, assistant assistants.IAssistant, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.started = TimeNowFn()
	l.stats = RunStats{}
}

func (l *Stats) OnAssistantEnd(ctx context.Context, assistant assistants.IAssistant, input string, output string) {
	l.end()
}

func (l *Stats) OnAssistantError(ctx context.Context, assistant assistants.IAssistant, input string, err error) {
	l.end()
}

func (l *Stats) end() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.started.IsZero() {
		l.stats.Duration = TimeNowFn().Sub(l.started)
	}
}

func (l *Stats) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolCalls++
}

func (l *Stats) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolCallsSucceeded++
}

func (l *Stats) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolCallsFailed++
}

func (l *Stats) OnToolNotFound(ctx context.Context, agent assistants.IAssistant, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.ToolNotFound++
}

func (l *Stats) OnAssistantLLMCallStart(ctx context.Context, agent assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.LLMCalls++
	l.stats.MessagesSent += uint64(len(payload))
	l.stats.LLMBytesOut += llmutils.CountMessagesContentSize(payload)
}

func (l *Stats) OnAssistantLLMCallEnd(ctx context.Context, agent assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	in, out, total := llmutils.CountTokens(resp)

	l.lock.Lock()
	defer l.lock.Unlock()
	l.stats.LLMBytesIn += llmutils.CountResponseContentSize(resp)
	l.stats.LLMInputTokens += in
	l.stats.LLMOutputTokens += out
	l.stats.LLMTotalTokens += total
}
