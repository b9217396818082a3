package dto

const (
	MessageUploaded      = "Proof uploaded to local IPFS successfully!"
	MessageNoProofFile   = "No proof file uploaded."
	MessageUploadFailed  = "Failed to upload file to local IPFS node."
	MessageRelayIsUp     = "Grant Tracker Backend (Local IPFS) is running!"
	MessageInternalError = "internal server error"
)

type UploadProofResponse struct {
	Message  string `json:"message"`
	IPFSHash string `json:"ipfsHash"`
	IPFSURL  string `json:"ipfsUrl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ReadinessResponse struct {
	Status      string `json:"status"`
	NodeVersion string `json:"nodeVersion,omitempty"`
}
