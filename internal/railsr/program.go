package railsr

import (
	"context"
)

type ProgramInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status,omitempty"`
	Country   string `json:"country,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ConnectionResult reports the outcome of a connectivity check.
type ConnectionResult struct {
	Success bool         `json:"success"`
	Data    *ProgramInfo `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Kind    ErrorKind    `json:"kind,omitempty"`
}

// Program wraps the /program endpoint.
type Program struct {
	r Requester
}

func NewProgram(r Requester) *Program {
	return &Program{r: r}
}

func (p *Program) Info(ctx context.Context) (*ProgramInfo, error) {
	return fetch[*ProgramInfo](ctx, p.r, &Request{Path: "/program"})
}

// TestConnection calls Info and folds the outcome into a result value.
func (p *Program) TestConnection(ctx context.Context) ConnectionResult {
	info, err := p.Info(ctx)
	if err != nil {
		return ConnectionResult{Error: err.Error(), Kind: KindOf(err)}
	}
	return ConnectionResult{Success: true, Data: info}
}
