package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	promptx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/prompt"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.seen = append(f.seen, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.seen = append(f.seen, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func (f *fakeChatModel) lastUserContent(t *testing.T) string {
	t.Helper()
	if len(f.seen) == 0 {
		t.Fatal("model was not called")
	}
	msgs := f.seen[len(f.seen)-1]
	return msgs[len(msgs)-1].Content
}

func TestRouterParsesVocabulary(t *testing.T) {
	t.Parallel()

	prompts := promptx.LoadPromptSet()
	cases := map[string]contractx.Intent{
		"shop_info":              contractx.IntentShopInfo,
		"  Product_Inquiry \n":   contractx.IntentProductInquiry,
		"book_appointment":       contractx.IntentBookAppointment,
		"unknown":                contractx.IntentUnknown,
		"I think it's shop_info": contractx.IntentUnknown,
		"":                       contractx.IntentUnknown,
	}
	for raw, want := range cases {
		fake := &fakeChatModel{reply: raw}
		router, err := NewRouter(context.Background(), fake, prompts.Router)
		if err != nil {
			t.Fatalf("NewRouter() error = %v", err)
		}

		got, err := router.Route(context.Background(), "What are your opening hours?")
		if err != nil {
			t.Fatalf("Route(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("Route with model output %q = %s, want %s", raw, got, want)
		}

		msgs := fake.seen[0]
		if len(msgs) != 2 || msgs[0].Role != schema.System || msgs[0].Content != promptx.RouterSystem {
			t.Fatalf("unexpected router messages: %#v", msgs)
		}
		user := fake.lastUserContent(t)
		if !strings.Contains(user, "What are your opening hours?") || !strings.Contains(user, "maintenance_tips") {
			t.Fatalf("router prompt not rendered: %s", user)
		}
	}
}

func TestRouterModelFailure(t *testing.T) {
	t.Parallel()

	router, err := NewRouter(context.Background(), &fakeChatModel{err: errors.New("down")}, promptx.LoadPromptSet().Router)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	_, err = router.Route(context.Background(), "hello")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestRouterRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{reply: "shop_info"}
	router, err := NewRouter(context.Background(), fake, promptx.LoadPromptSet().Router)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	if _, err := router.Route(context.Background(), "   "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(fake.seen) != 0 {
		t.Fatalf("model called for empty query")
	}
}

func TestConfirmationLabels(t *testing.T) {
	t.Parallel()

	instruction := promptx.LoadPromptSet().Confirmation
	cases := map[string]contractx.ConfirmationLabel{
		"affirmative":    contractx.ConfirmAffirmative,
		"Negative":       contractx.ConfirmNegative,
		"change":         contractx.ConfirmChange,
		"maybe tomorrow": contractx.ConfirmChange,
	}
	for raw, want := range cases {
		fake := &fakeChatModel{reply: raw}
		c, err := NewConfirmation(context.Background(), fake, instruction)
		if err != nil {
			t.Fatalf("NewConfirmation() error = %v", err)
		}
		got, err := c.Classify(context.Background(), "yes book it")
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if got != want {
			t.Fatalf("Classify with model output %q = %s, want %s", raw, got, want)
		}
		if !strings.Contains(fake.lastUserContent(t), "yes book it") {
			t.Fatalf("reply not rendered into prompt")
		}
	}
}

func TestOffTopicExactLabel(t *testing.T) {
	t.Parallel()

	instruction := promptx.LoadPromptSet().OffTopic
	cases := map[string]bool{
		"off_topic":          true,
		"OFF_TOPIC":          true,
		"on_topic":           false,
		"probably off_topic": false,
	}
	for raw, want := range cases {
		fake := &fakeChatModel{reply: raw}
		d, err := NewOffTopic(context.Background(), fake, instruction)
		if err != nil {
			t.Fatalf("NewOffTopic() error = %v", err)
		}
		got, err := d.IsOffTopic(context.Background(), contractx.OffTopicRequest{
			Query:   "what time do you open?",
			Missing: []string{"preferred_date", "preferred_time"},
		})
		if err != nil {
			t.Fatalf("IsOffTopic() error = %v", err)
		}
		if got != want {
			t.Fatalf("IsOffTopic with model output %q = %v, want %v", raw, got, want)
		}
		user := fake.lastUserContent(t)
		if !strings.Contains(user, "preferred_date, preferred_time") {
			t.Fatalf("missing fields not rendered: %s", user)
		}
	}
}

func TestOffTopicNothingMissing(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{reply: "on_topic"}
	d, err := NewOffTopic(context.Background(), fake, promptx.LoadPromptSet().OffTopic)
	if err != nil {
		t.Fatalf("NewOffTopic() error = %v", err)
	}
	if _, err := d.IsOffTopic(context.Background(), contractx.OffTopicRequest{Query: "ok"}); err != nil {
		t.Fatalf("IsOffTopic() error = %v", err)
	}
	if !strings.Contains(fake.lastUserContent(t), nothingMissing) {
		t.Fatalf("expected placeholder for empty missing list")
	}
}

func TestCompileRequiresModel(t *testing.T) {
	t.Parallel()

	if _, err := NewRouter(context.Background(), nil, "x {query} {modes}"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
