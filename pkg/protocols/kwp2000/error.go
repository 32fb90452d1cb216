package kwp2000

import (
	"fmt"

	"github.com/roffe/txdiag/pkg/protocols"
)

const (
	GENERAL_REJECT                                     = 0x10
	SERVICE_NOT_SUPPORTED                              = 0x11
	SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT        = 0x12
	BUSY_REPEAT_REQUEST                                = 0x21
	CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR   = 0x22
	ROUTINE_NOT_COMPLETE_OR_SERVICE_IN_PROGRESS        = 0x23
	REQUEST_OUT_OF_RANGE                               = 0x31
	SECURITY_ACCESS_DENIED_OR_REQUESTED                = 0x33
	SECURITY_ACCESS_ALLOWED                            = 0x34
	INVALID_KEY                                        = 0x35
	EXCEED_NUMBER_OF_ATTEMPTS                          = 0x36
	REQUIRED_TIME_DELAY_NOT_EXPIRED                    = 0x37
	DOWNLOAD_NOT_ACCEPTED                              = 0x40
	IMPROPER_DOWNLOAD_TYPE                             = 0x41
	CANNOT_DOWNLOAD_TO_SPECIFIED_ADDRESS               = 0x42
	CANNOT_DOWNLOAD_NUMBER_OF_BYTES_REQUESTED          = 0x43
	READY_FOR_DOWNLOAD                                 = 0x44
	UPLOAD_NOT_ACCEPTED                                = 0x50
	IMPROPER_UPLOAD_TYPE                               = 0x51
	CANNOT_UPLOAD_FROM_SPECIFIED_ADDRESS               = 0x52
	CANNOT_UPLOAD_NUMBER_OF_BYTES_REQUESTED            = 0x53
	READY_FOR_UPLOAD                                   = 0x54
	NORMAL_EXIT_WITH_RESULTS_AVAILABLE                 = 0x61
	NORMAL_EXIT_WITHOUT_RESULTS_AVAILABLE              = 0x62
	ABNORMAL_EXIT_WITH_RESULTS                         = 0x63
	ABNORMAL_EXIT_WITHOUT_RESULTS                      = 0x64
	TRANSFER_SUSPENDED                                 = 0x71
	TRANSFER_ABORTED                                   = 0x72
	ILLEGAL_ADDRESS_IN_BLOCK_TRANSFER                  = 0x74
	ILLEGAL_BYTE_COUNT_IN_BLOCK_TRANSFER               = 0x75
	ILLEGAL_BLOCK_TRANSFER_TYPE                        = 0x76
	BLOCK_TRANSFER_DATA_CHECKSUM_ERROR                 = 0x77
	REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING        = 0x78
	INCORRECT_BYTE_COUNT_DURING_BLOCK_TRANSFER         = 0x79
	SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION = 0x80
	NO_PROGRAM                                         = 0x90
)

type errorInfo struct {
	msg  string
	help string
}

var errorCodes = map[byte]errorInfo{
	GENERAL_REJECT:                              {"General reject", ""},
	SERVICE_NOT_SUPPORTED:                       {"Service not supported", "The ECU does not implement this service"},
	SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT: {"Sub-function not supported or invalid format", "Check the arguments sent with the command"},
	BUSY_REPEAT_REQUEST:                         {"Busy, repeat request", "The ECU is busy, try again shortly"},
	CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR: {"Conditions not correct or request sequence error",
		"The ECU is not in the correct state, another command may be required first"},
	ROUTINE_NOT_COMPLETE_OR_SERVICE_IN_PROGRESS: {"Routine not completed or service in progress", ""},
	REQUEST_OUT_OF_RANGE:                        {"Request out of range or session dropped", "Check the identifier or address requested"},
	SECURITY_ACCESS_DENIED_OR_REQUESTED:         {"Security access denied", "Unlock the ECU with security access first"},
	SECURITY_ACCESS_ALLOWED:                     {"Security access allowed", ""},
	INVALID_KEY:                                 {"Invalid key supplied", ""},
	EXCEED_NUMBER_OF_ATTEMPTS:                   {"Exceeded number of attempts to get security access", "Wait for the lockout delay and power cycle the ECU"},
	REQUIRED_TIME_DELAY_NOT_EXPIRED:             {"Required time delay not expired, you cannot gain security access at this moment", "Wait before requesting security access again"},
	DOWNLOAD_NOT_ACCEPTED:                       {"Download (PC -> ECU) not accepted", ""},
	IMPROPER_DOWNLOAD_TYPE:                      {"Improper download (PC -> ECU) type", ""},
	CANNOT_DOWNLOAD_TO_SPECIFIED_ADDRESS:        {"Unable to download (PC -> ECU) to specified address", ""},
	CANNOT_DOWNLOAD_NUMBER_OF_BYTES_REQUESTED:   {"Unable to download (PC -> ECU) number of bytes requested", ""},
	READY_FOR_DOWNLOAD:                          {"Ready for download", ""},
	UPLOAD_NOT_ACCEPTED:                         {"Upload (ECU -> PC) not accepted", ""},
	IMPROPER_UPLOAD_TYPE:                        {"Improper upload (ECU -> PC) type", ""},
	CANNOT_UPLOAD_FROM_SPECIFIED_ADDRESS:        {"Unable to upload (ECU -> PC) for specified address", ""},
	CANNOT_UPLOAD_NUMBER_OF_BYTES_REQUESTED:     {"Unable to upload (ECU -> PC) number of bytes requested", ""},
	READY_FOR_UPLOAD:                            {"Ready for upload", ""},
	NORMAL_EXIT_WITH_RESULTS_AVAILABLE:          {"Normal exit with results available", ""},
	NORMAL_EXIT_WITHOUT_RESULTS_AVAILABLE:       {"Normal exit without results available", ""},
	ABNORMAL_EXIT_WITH_RESULTS:                  {"Abnormal exit with results", ""},
	ABNORMAL_EXIT_WITHOUT_RESULTS:               {"Abnormal exit without results", ""},
	TRANSFER_SUSPENDED:                          {"Transfer suspended", ""},
	TRANSFER_ABORTED:                            {"Transfer aborted", ""},
	ILLEGAL_ADDRESS_IN_BLOCK_TRANSFER:           {"Illegal address in block transfer", ""},
	ILLEGAL_BYTE_COUNT_IN_BLOCK_TRANSFER:        {"Illegal byte count in block transfer", ""},
	ILLEGAL_BLOCK_TRANSFER_TYPE:                 {"Illegal block transfer type", ""},
	BLOCK_TRANSFER_DATA_CHECKSUM_ERROR:          {"Block transfer data checksum error", ""},
	REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING: {"Response pending", "The ECU did not finish processing the request in time"},
	INCORRECT_BYTE_COUNT_DURING_BLOCK_TRANSFER:  {"Incorrect byte count during block transfer", ""},
	SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION: {"Service not supported in current diagnostics session",
		"Switch the ECU into another diagnostic session mode first"},
	NO_PROGRAM: {"No program", "The ECU has no valid program loaded"},
}

// KWP2000Error is a decoded KWP2000 negative response code.
type KWP2000Error struct {
	Code byte
	Msg  string
	Hint string
}

// TranslateErrorCode never fails, unknown codes get a generic description.
func TranslateErrorCode(p byte) *KWP2000Error {
	if info, ok := errorCodes[p]; ok {
		return &KWP2000Error{Code: p, Msg: info.msg, Hint: info.help}
	}
	return &KWP2000Error{Code: p, Msg: fmt.Sprintf("Unknown error 0x%02X", p)}
}

// DecodeNRC is the NRC decoder used by KWP2000 sessions.
func DecodeNRC(b byte) protocols.CommandError {
	return TranslateErrorCode(b)
}

func (k *KWP2000Error) Byte() byte {
	return k.Code
}

func (k *KWP2000Error) Desc() string {
	return k.Msg
}

func (k *KWP2000Error) Help() (string, bool) {
	return k.Hint, k.Hint != ""
}

func (k *KWP2000Error) Error() string {
	return fmt.Sprintf("%s (0x%02X)", k.Msg, k.Code)
}
