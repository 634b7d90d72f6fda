package model

// RPC service and method names for the relay's gRPC surface.
const (
	RelayServiceName = "relay.v1.Relay"

	MethodReport           = "/relay.v1.Relay/Report"
	MethodGetReports       = "/relay.v1.Relay/GetReports"
	MethodGetCommand       = "/relay.v1.Relay/GetCommand"
	MethodSendCommand      = "/relay.v1.Relay/SendCommand"
	MethodSendCommandToAll = "/relay.v1.Relay/SendCommandToAll"
	MethodListClients      = "/relay.v1.Relay/ListClients"
	MethodRemoveClient     = "/relay.v1.Relay/RemoveClient"
	MethodHealth           = "/relay.v1.Relay/Health"
)

// Empty is the request of RPCs that take no arguments.
type Empty struct{}

// AgentRef names a single agent.
type AgentRef struct {
	AgentID string `json:"agent_id"`
}

// ReportList is the result of GetReports.
type ReportList struct {
	Reports []ReportEvent `json:"reports"`
}

// ClientMap is the result of ListClients.
type ClientMap struct {
	Clients map[string]AgentRecord `json:"clients"`
}
