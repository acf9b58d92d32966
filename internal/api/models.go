// Package api provides the HTTP control API for httpmap's serve mode.
package api

// StartScanRequest is the request body for starting a scan. Every field is
// optional; omitted values fall back to the configured defaults and the
// host's own network configuration.
type StartScanRequest struct {
	BaseIP       string `json:"base_ip,omitempty" binding:"omitempty,ip4_addr"`
	SubnetPrefix int    `json:"subnet_prefix,omitempty" binding:"omitempty,min=1,max=31"`
}

// ProbeRequest is the request body for a synchronous single-target probe.
type ProbeRequest struct {
	IP   string `json:"ip" binding:"required,ip4_addr"`
	Port int    `json:"port" binding:"required,min=1,max=65535"`
}

// ScanStatusResponse reports the state of the current scan.
type ScanStatusResponse struct {
	Status    string  `json:"status"` // idle or running
	Running   bool    `json:"running"`
	ScanID    string  `json:"scan_id,omitempty"`
	Subnet    string  `json:"subnet,omitempty"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Responded int     `json:"responded"`
	Fraction  float64 `json:"fraction"`
}

// EndpointResult is one responsive endpoint as returned by the results
// endpoint.
type EndpointResult struct {
	IP         string `json:"ip"`
	Port       int    `json:"port"`
	Scheme     string `json:"scheme"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Title      string `json:"title,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}
