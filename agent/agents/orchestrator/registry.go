package orchestrator

import (
	"context"
	"fmt"

	classifierx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/classifier"
	responderx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/responder"
	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/llm"
	promptx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/prompt"
	openrouterx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/pkg/openrouter"
)

type registryImpl struct {
	router       contractx.IntentRouter
	extractor    contractx.SlotExtractor
	confirmation contractx.ConfirmationClassifier
	offTopic     contractx.OffTopicDetector
	responder    contractx.Responder
}

func (r *registryImpl) Router() contractx.IntentRouter {
	return r.router
}

func (r *registryImpl) Extractor() contractx.SlotExtractor {
	return r.extractor
}

func (r *registryImpl) Confirmation() contractx.ConfirmationClassifier {
	return r.confirmation
}

func (r *registryImpl) OffTopic() contractx.OffTopicDetector {
	return r.offTopic
}

func (r *registryImpl) Responder() contractx.Responder {
	return r.responder
}

// NewRegistry builds every model-backed capability from the LLM config.
func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	routerModelCfg := cfg.OpenRouterFor(llmx.CapabilityRouter)
	routerModel, err := routerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
	}
	classifierModelCfg := cfg.OpenRouterFor(llmx.CapabilityClassifier)
	classifierModel, err := classifierModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrModelInvoke, err)
	}
	responderModelCfg := cfg.OpenRouterFor(llmx.CapabilityResponder)
	responderModel, err := responderModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create responder model: %v", contractx.ErrModelInvoke, err)
	}

	router, err := classifierx.NewRouter(ctx, routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}
	confirmation, err := classifierx.NewConfirmation(ctx, classifierModel, prompts.Confirmation)
	if err != nil {
		return nil, err
	}
	offTopic, err := classifierx.NewOffTopic(ctx, classifierModel, prompts.OffTopic)
	if err != nil {
		return nil, err
	}

	extractorCfg := cfg.OpenRouterFor(llmx.CapabilityExtractor)
	extractor, err := classifierx.NewExtractor(openrouterx.NewClient(extractorCfg), extractorCfg.Model, extractorCfg.Temperature, prompts.Extraction)
	if err != nil {
		return nil, err
	}

	responder, err := responderx.New(responderModel)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:       router,
		extractor:    extractor,
		confirmation: confirmation,
		offTopic:     offTopic,
		responder:    responder,
	}, nil
}
