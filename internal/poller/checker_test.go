package poller

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

type panicAPI struct{}

func (panicAPI) Fetch(context.Context, int64) (any, error) { panic("boom") }

func newTestChecker(api Fetcher, out Sender) *Checker {
	c := NewChecker(api, out, logx.Nop())
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCheckUsesLastDayWindow(t *testing.T) {
	api := &fakeAPI{}
	out := &fakeOut{}
	c := newTestChecker(api, out)

	res := c.Check(context.Background(), kit.ChatTarget{ChatID: 5})
	if res.Err != nil {
		t.Fatalf("Check() err = %v", res.Err)
	}
	want := fixedNow.Add(-24 * time.Hour).Unix()
	if len(api.since) != 1 || api.since[0] != want {
		t.Fatalf("since = %v, want [%d]", api.since, want)
	}
	got := out.sent()
	if len(got) != 2 || got[0] != checkStartText || got[1] != checkNothingText {
		t.Fatalf("replies = %v", got)
	}
}

func TestCheckRepliesEachItem(t *testing.T) {
	api := &fakeAPI{results: []fetchResult{{raw: payload(t, `{
		"homeworks": [
			{"homework_name": "a", "status": "approved"},
			{"homework_name": "b", "status": "rejected"}
		],
		"current_date": 1
	}`)}}}
	out := &fakeOut{}
	c := newTestChecker(api, out)

	res := c.Check(context.Background(), kit.ChatTarget{ChatID: 5})
	if res.Replies != 3 {
		t.Fatalf("replies = %d, want 3", res.Replies)
	}
	got := out.sent()
	if !strings.Contains(got[1], `"a"`) || !strings.Contains(got[2], `"b"`) {
		t.Fatalf("replies = %v", got)
	}
}

func TestCheckContainsFailures(t *testing.T) {
	out := &fakeOut{}
	c := newTestChecker(&fakeAPI{results: []fetchResult{{err: errors.New("dial tcp: refused")}}}, out)

	res := c.Check(context.Background(), kit.ChatTarget{ChatID: 5})
	if res.Err == nil {
		t.Fatalf("expected failure in result")
	}
	got := out.sent()
	if len(got) != 2 || got[1] != "service failed: dial tcp: refused" {
		t.Fatalf("replies = %v", got)
	}
}

func TestCheckRecoversPanic(t *testing.T) {
	out := &fakeOut{}
	c := newTestChecker(panicAPI{}, out)

	res := c.Check(context.Background(), kit.ChatTarget{ChatID: 5})
	if res.Err == nil || !strings.Contains(res.Err.Error(), "boom") {
		t.Fatalf("Err = %v", res.Err)
	}
	got := out.sent()
	if len(got) != 2 || !strings.HasPrefix(got[1], "service failed: ") {
		t.Fatalf("replies = %v", got)
	}
}

func TestCheckSurvivesSendFailures(t *testing.T) {
	c := newTestChecker(&fakeAPI{}, &fakeOut{fail: true})
	res := c.Check(context.Background(), kit.ChatTarget{ChatID: 5})
	if res.Replies != 0 || res.Err != nil {
		t.Fatalf("Check() = %+v", res)
	}
}
