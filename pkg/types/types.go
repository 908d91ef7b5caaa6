// Package types contains shared API types for the deploydesk dashboard.
package types

// CommandStatus is the lifecycle state of the deploy command.
type CommandStatus string

const (
	CommandIdle       CommandStatus = "idle"
	CommandValidating CommandStatus = "validating"
	CommandSubmitting CommandStatus = "submitting"
	CommandSucceeded  CommandStatus = "succeeded"
	CommandFailed     CommandStatus = "failed"
)

// DeploymentRecord is one factory deployment owned by the active account.
// Records keep the order the contract returned them in.
type DeploymentRecord struct {
	ContractAddress string `json:"contractAddress"`
	Owner           string `json:"owner"`
	Label           string `json:"label"`
	CreationTime    int64  `json:"creationTime"` // unix seconds
}

// ViewState is the single render-relevant state pushed to the browser.
// Published atomically: a consumer never observes a half-updated state.
type ViewState struct {
	// Session
	Account string `json:"account,omitempty"` // empty = no wallet
	ChainID string `json:"chainId,omitempty"` // decimal, empty = no chain

	// Contract handle
	FactoryAddress string `json:"factoryAddress,omitempty"`
	Configured     bool   `json:"configured"`  // factory address present
	HandleReady    bool   `json:"handleReady"` // factory address and chain both present

	// Fee/paused snapshot. FeeWei is a decimal string; empty means the fee
	// has not been fetched for the current handle.
	FeeWei    string `json:"feeWei,omitempty"`
	Paused    bool   `json:"paused"`
	ReadError string `json:"readError,omitempty"`

	// Deploy command
	Command        CommandStatus `json:"command"`
	CommandMessage string        `json:"commandMessage,omitempty"`
	TxHash         string        `json:"txHash,omitempty"`

	// Deployments for the active account. Never null in JSON; zero records
	// and not-yet-fetched both present as an empty list.
	Deployments []DeploymentRecord `json:"deployments"`
}

// DeployResponse is the HTTP reply to a deploy trigger.
type DeployResponse struct {
	Accepted bool          `json:"accepted"`
	Message  string        `json:"message,omitempty"`
	State    CommandStatus `json:"state"`
}

// SubmissionRecord is one entry in the session submission history.
type SubmissionRecord struct {
	TxHash      string `json:"txHash"`
	Account     string `json:"account"`
	FeeWei      string `json:"feeWei"`
	SubmittedAt int64  `json:"submittedAt"` // unix seconds
	Outcome     string `json:"outcome"`     // "submitted" or "failed"
	Error       string `json:"error,omitempty"`
}
