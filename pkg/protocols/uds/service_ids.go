package uds

import (
	"fmt"

	"github.com/roffe/txdiag/pkg/protocols"
)

// Service is a UDS (ISO 14229) service identifier.
type Service byte

const (
	DIAGNOSTIC_SESSION_CONTROL         = Service(0x10)
	ECU_RESET                          = Service(0x11)
	CLEAR_DIAGNOSTIC_INFORMATION       = Service(0x14)
	READ_DTC_INFORMATION               = Service(0x19)
	READ_DATA_BY_IDENTIFIER            = Service(0x22)
	READ_MEMORY_BY_ADDRESS             = Service(0x23)
	READ_SCALING_DATA_BY_IDENTIFIER    = Service(0x24)
	SECURITY_ACCESS                    = Service(0x27)
	COMMUNICATION_CONTROL              = Service(0x28)
	AUTHENTICATION                     = Service(0x29)
	READ_DATA_BY_PERIODIC_IDENTIFIER   = Service(0x2A)
	DYNAMICALLY_DEFINE_DATA_IDENTIFIER = Service(0x2C)
	WRITE_DATA_BY_IDENTIFIER           = Service(0x2E)
	INPUT_OUTPUT_CONTROL_BY_IDENTIFIER = Service(0x2F)
	ROUTINE_CONTROL                    = Service(0x31)
	REQUEST_DOWNLOAD                   = Service(0x34)
	REQUEST_UPLOAD                     = Service(0x35)
	TRANSFER_DATA                      = Service(0x36)
	REQUEST_TRANSFER_EXIT              = Service(0x37)
	REQUEST_FILE_TRANSFER              = Service(0x38)
	WRITE_MEMORY_BY_ADDRESS            = Service(0x3D)
	TESTER_PRESENT                     = Service(0x3E)
	ACCESS_TIMING_PARAMETER            = Service(0x83)
	SECURED_DATA_TRANSMISSION          = Service(0x84)
	CONTROL_DTC_SETTING                = Service(0x85)
	RESPONSE_ON_EVENT                  = Service(0x86)
	LINK_CONTROL                       = Service(0x87)
)

/* DiagnosticSessionControl sub-functions */
const (
	SESSION_DEFAULT     = 0x01
	SESSION_PROGRAMMING = 0x02
	SESSION_EXTENDED    = 0x03
	SESSION_SAFETY      = 0x04
)

/* ReadDTCInformation sub-functions */
const (
	REPORT_NUMBER_OF_DTC_BY_STATUS_MASK = 0x01
	REPORT_DTC_BY_STATUS_MASK           = 0x02
	REPORT_DTC_SNAPSHOT_RECORD          = 0x04
	REPORT_DTC_EXT_DATA_RECORD          = 0x06
)

// SUPPRESS_POS_RESPONSE is or'ed into a sub-function to suppress the reply.
const SUPPRESS_POS_RESPONSE = 0x80

type serviceInfo struct {
	name    string
	desc    string
	caution protocols.CautionLevel
}

var services = []Service{
	DIAGNOSTIC_SESSION_CONTROL,
	ECU_RESET,
	CLEAR_DIAGNOSTIC_INFORMATION,
	READ_DTC_INFORMATION,
	READ_DATA_BY_IDENTIFIER,
	READ_MEMORY_BY_ADDRESS,
	READ_SCALING_DATA_BY_IDENTIFIER,
	SECURITY_ACCESS,
	COMMUNICATION_CONTROL,
	AUTHENTICATION,
	READ_DATA_BY_PERIODIC_IDENTIFIER,
	DYNAMICALLY_DEFINE_DATA_IDENTIFIER,
	WRITE_DATA_BY_IDENTIFIER,
	INPUT_OUTPUT_CONTROL_BY_IDENTIFIER,
	ROUTINE_CONTROL,
	REQUEST_DOWNLOAD,
	REQUEST_UPLOAD,
	TRANSFER_DATA,
	REQUEST_TRANSFER_EXIT,
	REQUEST_FILE_TRANSFER,
	WRITE_MEMORY_BY_ADDRESS,
	TESTER_PRESENT,
	ACCESS_TIMING_PARAMETER,
	SECURED_DATA_TRANSMISSION,
	CONTROL_DTC_SETTING,
	RESPONSE_ON_EVENT,
	LINK_CONTROL,
}

var serviceInfos = map[Service]serviceInfo{
	DIAGNOSTIC_SESSION_CONTROL:         {"DiagnosticSessionControl", "Switches the ECU to another diagnostic session", protocols.CautionWarn},
	ECU_RESET:                          {"ECUReset", "Resets the ECU", protocols.CautionAlert},
	CLEAR_DIAGNOSTIC_INFORMATION:       {"ClearDiagnosticInformation", "Clears DTCs stored on the ECU", protocols.CautionWarn},
	READ_DTC_INFORMATION:               {"ReadDTCInformation", "Reads DTCs and their snapshot data", protocols.CautionNone},
	READ_DATA_BY_IDENTIFIER:            {"ReadDataByIdentifier", "Reads a record by its data identifier", protocols.CautionNone},
	READ_MEMORY_BY_ADDRESS:             {"ReadMemoryByAddress", "Reads a block of ECU memory", protocols.CautionNone},
	READ_SCALING_DATA_BY_IDENTIFIER:    {"ReadScalingDataByIdentifier", "Reads scaling information of a data identifier", protocols.CautionNone},
	SECURITY_ACCESS:                    {"SecurityAccess", "Requests seed or sends key to unlock the ECU", protocols.CautionWarn},
	COMMUNICATION_CONTROL:              {"CommunicationControl", "Enables or disables ECU messages on the bus", protocols.CautionAlert},
	AUTHENTICATION:                     {"Authentication", "Authenticates the tester", protocols.CautionWarn},
	READ_DATA_BY_PERIODIC_IDENTIFIER:   {"ReadDataByPeriodicIdentifier", "Requests periodic transmission of data identifiers", protocols.CautionNone},
	DYNAMICALLY_DEFINE_DATA_IDENTIFIER: {"DynamicallyDefineDataIdentifier", "Defines a data identifier at runtime", protocols.CautionWarn},
	WRITE_DATA_BY_IDENTIFIER:           {"WriteDataByIdentifier", "Writes a record by its data identifier", protocols.CautionAlert},
	INPUT_OUTPUT_CONTROL_BY_IDENTIFIER: {"InputOutputControlByIdentifier", "Overrides an ECU input or output", protocols.CautionAlert},
	ROUTINE_CONTROL:                    {"RoutineControl", "Starts, stops or polls a routine on the ECU", protocols.CautionAlert},
	REQUEST_DOWNLOAD:                   {"RequestDownload", "Starts a download (PC -> ECU)", protocols.CautionAlert},
	REQUEST_UPLOAD:                     {"RequestUpload", "Starts an upload (ECU -> PC)", protocols.CautionWarn},
	TRANSFER_DATA:                      {"TransferData", "Transfers a data block", protocols.CautionAlert},
	REQUEST_TRANSFER_EXIT:              {"RequestTransferExit", "Ends a data transfer", protocols.CautionWarn},
	REQUEST_FILE_TRANSFER:              {"RequestFileTransfer", "Starts a file transfer", protocols.CautionAlert},
	WRITE_MEMORY_BY_ADDRESS:            {"WriteMemoryByAddress", "Writes a block of ECU memory", protocols.CautionAlert},
	TESTER_PRESENT:                     {"TesterPresent", "Keeps the diagnostic session alive", protocols.CautionNone},
	ACCESS_TIMING_PARAMETER:            {"AccessTimingParameter", "Reads or changes communication timing", protocols.CautionWarn},
	SECURED_DATA_TRANSMISSION:          {"SecuredDataTransmission", "Sends an encrypted request", protocols.CautionWarn},
	CONTROL_DTC_SETTING:                {"ControlDTCSetting", "Enables or disables DTC storage", protocols.CautionWarn},
	RESPONSE_ON_EVENT:                  {"ResponseOnEvent", "Requests the ECU to respond on an event", protocols.CautionWarn},
	LINK_CONTROL:                       {"LinkControl", "Changes the communication baud rate", protocols.CautionAlert},
}

func (s Service) Byte() byte {
	return byte(s)
}

func (s Service) Name() string {
	if info, ok := serviceInfos[s]; ok {
		return info.name
	}
	return fmt.Sprintf("Unknown(0x%02X)", byte(s))
}

func (s Service) Desc() string {
	if info, ok := serviceInfos[s]; ok {
		return info.desc
	}
	return "Unknown service"
}

func (s Service) CautionLevel() protocols.CautionLevel {
	if info, ok := serviceInfos[s]; ok {
		return info.caution
	}
	return protocols.CautionAlert
}

func (s Service) CommandList() []protocols.ECUCommand {
	return Commands()
}

func (s Service) String() string {
	return s.Name()
}

// Commands returns the full UDS service set.
func Commands() []protocols.ECUCommand {
	out := make([]protocols.ECUCommand, len(services))
	for i, s := range services {
		out[i] = s
	}
	return out
}
