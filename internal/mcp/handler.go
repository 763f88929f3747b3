package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gfitzpatrick-eightfold/Macros/internal/generate"
	"github.com/gfitzpatrick-eightfold/Macros/internal/logger"
	"github.com/gfitzpatrick-eightfold/Macros/internal/macro"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Server exposes macro generation, validation and resolution over MCP.
type Server struct {
	registry    *macro.Registry
	generator   *generate.Service
	definitions string // path to the macro definitions document
	mcpServer   *mcp.Server
}

// NewServer creates the MCP server and registers its resources, tools and
// prompts.
func NewServer(r *macro.Registry, g *generate.Service, definitionsPath string) *Server {
	s := &Server{
		registry:    r,
		generator:   g,
		definitions: definitionsPath,
	}

	impl := &mcp.Implementation{
		Name:    "macros",
		Version: "1.0.0",
	}
	s.mcpServer = mcp.NewServer(impl, nil)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("Starting Macros MCP Server...")
	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerResources() {
	// Resource: macro://kinds - registered kinds with parameter schemas
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "macro://kinds",
		Name:        "Macro Kinds",
		Description: "All registered macro kinds with their descriptions and parameter schemas",
		MIMEType:    "application/json",
	}, s.handleKinds)

	// Resource: macro://definitions - the raw definitions document
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "macro://definitions",
		Name:        "Macro Definitions",
		Description: "The external macro definitions document consumed at startup",
		MIMEType:    "application/json",
	}, s.handleDefinitions)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_macro",
		Description: "Generate a macro configuration from a natural-language requirement and a sample API response",
	}, s.handleGenerateMacro)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "validate_macro",
		Description: "Validate a candidate macro configuration against the macro schema",
	}, s.handleValidateMacro)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "resolve_macro",
		Description: "Resolve a macro configuration against a concrete API response, producing field values",
	}, s.handleResolveMacro)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_macro_kinds",
		Description: "List all available macro kinds",
	}, s.handleListMacroKinds)
}

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "macro_generation",
		Description: "Template for generating a macro configuration from a requirement and sample response",
	}, s.handleMacroGenerationPrompt)
}

// Resource Handlers

func (s *Server) handleKinds(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.registry.Kinds(), "", "  ")
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func (s *Server) handleDefinitions(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := os.ReadFile(s.definitions)
	if err != nil {
		return nil, fmt.Errorf("failed to load macro definitions: %v", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

// Tool Handlers

type GenerateMacroInput struct {
	Requirement string `json:"requirement" jsonschema:"Natural-language description of the desired extraction"`
	Sample      string `json:"sample" jsonschema:"Sample API response as a JSON document"`
}

type GenerateMacroOutput struct {
	Config map[string]interface{} `json:"config" jsonschema:"Generated and validated macro configuration"`
}

func (s *Server) handleGenerateMacro(ctx context.Context, req *mcp.CallToolRequest, input GenerateMacroInput) (*mcp.CallToolResult, GenerateMacroOutput, error) {
	var sample interface{}
	if err := json.Unmarshal([]byte(input.Sample), &sample); err != nil {
		return nil, GenerateMacroOutput{}, fmt.Errorf("invalid sample document: %v", err)
	}

	logger.Info("MCP: Generating macro", zap.String("requirement", input.Requirement))

	cfg, err := s.generator.Generate(input.Requirement, sample)
	if err != nil {
		return nil, GenerateMacroOutput{}, fmt.Errorf("generation failed: %v", err)
	}

	return nil, GenerateMacroOutput{Config: cfg}, nil
}

type ValidateMacroInput struct {
	Config string `json:"config" jsonschema:"Candidate macro configuration as a JSON document"`
}

type ValidateMacroOutput struct {
	Valid bool   `json:"valid" jsonschema:"Whether the configuration passed validation"`
	Error string `json:"error,omitempty" jsonschema:"First validation error, when invalid"`
}

func (s *Server) handleValidateMacro(ctx context.Context, req *mcp.CallToolRequest, input ValidateMacroInput) (*mcp.CallToolResult, ValidateMacroOutput, error) {
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(input.Config), &cfg); err != nil {
		return nil, ValidateMacroOutput{}, fmt.Errorf("invalid configuration document: %v", err)
	}

	if _, err := s.registry.ValidateConfig(cfg); err != nil {
		return nil, ValidateMacroOutput{Valid: false, Error: err.Error()}, nil
	}
	return nil, ValidateMacroOutput{Valid: true}, nil
}

type ResolveMacroInput struct {
	Config string `json:"config" jsonschema:"Macro configuration as a JSON document"`
	Sample string `json:"sample" jsonschema:"API response to resolve against, as a JSON document"`
}

type ResolveMacroOutput struct {
	Fields map[string]interface{} `json:"fields" jsonschema:"Mapping from field name to resolved value"`
}

func (s *Server) handleResolveMacro(ctx context.Context, req *mcp.CallToolRequest, input ResolveMacroInput) (*mcp.CallToolResult, ResolveMacroOutput, error) {
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(input.Config), &cfg); err != nil {
		return nil, ResolveMacroOutput{}, fmt.Errorf("invalid configuration document: %v", err)
	}
	var sample interface{}
	if err := json.Unmarshal([]byte(input.Sample), &sample); err != nil {
		return nil, ResolveMacroOutput{}, fmt.Errorf("invalid sample document: %v", err)
	}

	if _, err := s.registry.ValidateConfig(cfg); err != nil {
		return nil, ResolveMacroOutput{}, fmt.Errorf("validation failed: %v", err)
	}

	fields, err := s.registry.ResolveAll(cfg, sample)
	if err != nil {
		return nil, ResolveMacroOutput{}, fmt.Errorf("resolution failed: %v", err)
	}

	logger.Info("MCP: Resolved macro configuration", zap.Int("fields", len(fields)))

	return nil, ResolveMacroOutput{Fields: fields}, nil
}

type ListMacroKindsOutput struct {
	Kinds []macro.KindInfo `json:"kinds" jsonschema:"List of registered macro kinds"`
}

func (s *Server) handleListMacroKinds(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, ListMacroKindsOutput, error) {
	kinds := s.registry.Kinds()
	logger.Info("MCP: Listed macro kinds", zap.Int("count", len(kinds)))
	return nil, ListMacroKindsOutput{Kinds: kinds}, nil
}

// Prompt Handlers

type MacroGenerationPromptArgs struct {
	Requirement string `json:"requirement" jsonschema:"Natural-language description of the desired extraction"`
	Sample      string `json:"sample" jsonschema:"Sample API response as a JSON document"`
}

func (s *Server) handleMacroGenerationPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args MacroGenerationPromptArgs
	if req.Params.Arguments != nil {
		data, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, err
		}
	}

	var sample interface{}
	if args.Sample != "" {
		if err := json.Unmarshal([]byte(args.Sample), &sample); err != nil {
			return nil, fmt.Errorf("invalid sample document: %v", err)
		}
	}

	fullPrompt, err := s.generator.BuildPrompt(args.Requirement, sample)
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: "Macro generation prompt for mapping API data to internal fields",
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: fullPrompt,
				},
			},
		},
	}, nil
}
