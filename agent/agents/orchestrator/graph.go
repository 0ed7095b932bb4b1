package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/nodes"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/trace"
)

type stepFunc = func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodex.StepValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.StepValidateRequest, err)
	}

	steps := []struct {
		name string
		fn   stepFunc
	}{
		{nodex.StepLoadState, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadState(ctx, in, o.store)
		}},
		{nodex.StepProcessQuery, o.traced(nodex.StepProcessQuery, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ProcessQuery(in)
		})},
		{nodex.StepCheckSafety, o.traced(nodex.StepCheckSafety, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CheckSafety(in, o.gate)
		})},
		{nodex.StepUnsafeResponse, o.traced(nodex.StepUnsafeResponse, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.UnsafeResponse(in, o.delays)
		})},
		{nodex.StepBookingFlow, o.traced(nodex.StepBookingFlow, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BookingFlow(ctx, in, o.engine, o.delays)
		})},
		{nodex.StepDecideMode, o.traced(nodex.StepDecideMode, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DecideMode(ctx, in, o.models.Router())
		})},
		{nodex.StepStartBooking, o.traced(nodex.StepStartBooking, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.StartBooking(ctx, in, o.engine, o.delays)
		})},
		{nodex.StepPlanReply, o.traced(nodex.StepPlanReply, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PlanReply(in, o.delays)
		})},
		{nodex.StepRespond, o.traced(nodex.StepRespond, o.respond)},
		{nodex.StepCommitState, o.traced(nodex.StepCommitState, func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CommitState(ctx, in, o.store)
		})},
	}
	for _, s := range steps {
		if err := graph.AddLambdaNode(s.name, compose.InvokableLambda(s.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", s.name, err)
		}
	}

	if err := graph.AddLambdaNode("finalize_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_turn: %w", err)
	}

	safetyBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.AfterSafety(in)
		},
		map[string]bool{
			nodex.StepUnsafeResponse: true,
			nodex.StepBookingFlow:    true,
			nodex.StepDecideMode:     true,
		},
	)
	if err := graph.AddBranch(nodex.StepCheckSafety, safetyBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodex.StepCheckSafety, err)
	}

	modeBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.AfterDecideMode(in)
		},
		map[string]bool{
			nodex.StepStartBooking: true,
			nodex.StepPlanReply:    true,
		},
	)
	if err := graph.AddBranch(nodex.StepDecideMode, modeBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodex.StepDecideMode, err)
	}

	edges := [][2]string{
		{compose.START, nodex.StepValidateRequest},
		{nodex.StepValidateRequest, nodex.StepLoadState},
		{nodex.StepLoadState, nodex.StepProcessQuery},
		{nodex.StepProcessQuery, nodex.StepCheckSafety},
		{nodex.StepUnsafeResponse, nodex.StepRespond},
		{nodex.StepBookingFlow, nodex.StepRespond},
		{nodex.StepStartBooking, nodex.StepRespond},
		{nodex.StepPlanReply, nodex.StepRespond},
		{nodex.StepRespond, nodex.StepCommitState},
		{nodex.StepCommitState, "finalize_turn"},
		{"finalize_turn", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

// traced brackets a step with begin/end trace entries under a fresh
// sequence id.
func (o *Orchestrator) traced(action string, fn stepFunc) stepFunc {
	return func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
		if in == nil || in.Session == nil {
			return fn(ctx, in)
		}

		seq := o.seq.next(in.SessionID, in.Session.SequenceID)
		in.Session.SequenceID = seq
		in.Result = nil

		o.emitTrace(ctx, trace.Entry{
			Kind:       trace.KindBeginEntry,
			AppID:      in.SessionID,
			SequenceID: seq,
			Action:     action,
			StartTime:  o.now().UTC(),
			Inputs:     map[string]any{"query": in.Text},
		})

		out, err := fn(ctx, in)

		end := trace.Entry{
			Kind:       trace.KindEndEntry,
			AppID:      in.SessionID,
			SequenceID: seq,
			Action:     action,
			EndTime:    o.now().UTC(),
			Result:     in.Result,
			State:      in.Session.Clone(),
		}
		if err != nil {
			end.Result = nil
			end.Exception = err.Error()
		}
		o.emitTrace(ctx, end)

		return out, err
	}
}

// respond wraps the reply stream with begin/end stream markers.
func (o *Orchestrator) respond(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
	if in == nil || in.Session == nil {
		return nodex.Respond(ctx, in, o.models.Responder())
	}
	seq := in.Session.SequenceID

	o.emitTrace(ctx, trace.Entry{
		Kind:           trace.KindBeginStream,
		AppID:          in.SessionID,
		SequenceID:     seq,
		Action:         nodex.StepRespond,
		StreamInitTime: o.now().UTC(),
	})

	items := 0
	emit := in.Emit
	in.Emit = func(text string) error {
		items++
		return emit(text)
	}
	out, err := nodex.Respond(ctx, in, o.models.Responder())
	in.Emit = emit

	o.emitTrace(ctx, trace.Entry{
		Kind:          trace.KindEndStream,
		AppID:         in.SessionID,
		SequenceID:    seq,
		Action:        nodex.StepRespond,
		EndTime:       o.now().UTC(),
		ItemsStreamed: items,
	})
	return out, err
}

func (o *Orchestrator) emitTrace(ctx context.Context, e trace.Entry) {
	if err := o.tracker.Emit(ctx, e); err != nil {
		log.Warn().Err(err).Str("session_id", e.AppID).Str("action", e.Action).Msg("trace emit failed")
	}
}
