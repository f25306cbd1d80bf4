package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := NewManualProgressBar(&out, 10, 4)

	bar.Increment()
	bar.SetLabel("loss: 1.5")
	bar.Display()

	if !strings.Contains(out.String(), "25.00%") {
		t.Errorf("expected 25%% progress, have %q", out.String())
	}
	if !strings.Contains(out.String(), "loss: 1.5") {
		t.Errorf("expected label in %q", out.String())
	}
	if got := strings.Count(bar.String(), "█"); got != 2 {
		t.Errorf("bar has %v filled cells, want 2", got)
	}

	for i := 0; i < 10; i++ {
		bar.Increment()
	}
	if bar.Progress() != 1 {
		t.Errorf("progress %v after overfilling, want 1", bar.Progress())
	}

	out.Reset()
	bar.Finish()
	if !strings.HasSuffix(out.String(), "\n") {
		t.Error("expected Finish to end the line")
	}
	if got := strings.Count(out.String(), "█"); got != 10 {
		t.Errorf("full bar has %v filled cells, want 10", got)
	}
}
