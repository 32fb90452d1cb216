package kwp2000

import (
	"fmt"

	"github.com/roffe/txdiag/pkg/protocols"
)

// Service is a KWP2000 service identifier.
type Service byte

const (
	START_DIAGNOSTIC_SESSION                = Service(0x10)
	ECU_RESET                               = Service(0x11)
	READ_FREEZE_FRAME_DATA                  = Service(0x12)
	READ_DIAGNOSTIC_TROUBLE_CODES           = Service(0x13)
	CLEAR_DIAGNOSTIC_INFORMATION            = Service(0x14)
	READ_STATUS_OF_DIAGNOSTIC_TROUBLE_CODES = Service(0x17)
	READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS = Service(0x18)
	READ_ECU_IDENTIFICATION                 = Service(0x1A)
	STOP_DIAGNOSTIC_SESSION                 = Service(0x20)

	/* DATA TRANSMISSION FUNCTIONAL UNIT */
	READ_DATA_BY_LOCAL_IDENTIFIER       = Service(0x21)
	READ_DATA_BY_COMMON_IDENTIFIER      = Service(0x22)
	READ_MEMORY_BY_ADDRESS              = Service(0x23)
	STOP_REPEATED_DATA_TRANSMISSION     = Service(0x25)
	SET_DATA_RATES                      = Service(0x26)
	SECURITY_ACCESS                     = Service(0x27)
	DYNAMICALLY_DEFINE_LOCAL_IDENTIFIER = Service(0x2C)
	WRITE_DATA_BY_COMMON_IDENTIFIER     = Service(0x2E)

	/* INPUTOUTPUT CONTROL FUNCTIONAL UNIT */
	INPUT_OUTPUT_CONTROL_BY_COMMON_IDENTIFIER = Service(0x2F)
	INPUT_OUTPUT_CONTROL_BY_LOCAL_IDENTIFIER  = Service(0x30)

	/* REMOTE ACTIVATION OF ROUTINE FUNCTIONAL UNIT */
	START_ROUTINE_BY_LOCAL_IDENTIFIER           = Service(0x31)
	STOP_ROUTINE_BY_LOCAL_IDENTIFIER            = Service(0x32)
	REQUEST_ROUTINE_RESULTS_BY_LOCAL_IDENTIFIER = Service(0x33)

	/* UPLOAD DOWNLOAD FUNCTIONAL UNIT */
	REQUEST_DOWNLOAD      = Service(0x34)
	REQUEST_UPLOAD        = Service(0x35)
	TRANSFER_DATA         = Service(0x36)
	REQUEST_TRANSFER_EXIT = Service(0x37)

	START_ROUTINE_BY_ADDRESS           = Service(0x38)
	STOP_ROUTINE_BY_ADDRESS            = Service(0x39)
	REQUEST_ROUTINE_RESULTS_BY_ADDRESS = Service(0x3A)
	WRITE_DATA_BY_LOCAL_IDENTIFIER     = Service(0x3B)
	WRITE_MEMORY_BY_ADDRESS            = Service(0x3D)
	TESTER_PRESENT                     = Service(0x3E)

	START_COMMUNICATION      = Service(0x81)
	STOP_COMMUNICATION       = Service(0x82)
	ACCESS_TIMING_PARAMETERS = Service(0x83)
	CONTROL_DTC_SETTINGS     = Service(0x85)
	RESPONSE_ON_EVENT        = Service(0x86)
)

/* StartDiagnosticSession modes */
const (
	SESSION_DEFAULT     = 0x81
	SESSION_FLASH       = 0x85
	SESSION_STANDBY     = 0x89
	SESSION_PASSIVE     = 0x90
	SESSION_EXTENDED    = 0x92
	SESSION_SUPPLIER    = 0xFA
	TESTER_PRESENT_RESP = 0x01
	TESTER_PRESENT_NONE = 0x02
)

/* ReadECUIdentification options */
const (
	IDENT_DCX_MMC = 0x87
	IDENT_DCS     = 0x86
	IDENT_VIN     = 0x90
)

type serviceInfo struct {
	name    string
	desc    string
	caution protocols.CautionLevel
}

var services = []Service{
	START_DIAGNOSTIC_SESSION,
	ECU_RESET,
	READ_FREEZE_FRAME_DATA,
	READ_DIAGNOSTIC_TROUBLE_CODES,
	CLEAR_DIAGNOSTIC_INFORMATION,
	READ_STATUS_OF_DIAGNOSTIC_TROUBLE_CODES,
	READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS,
	READ_ECU_IDENTIFICATION,
	STOP_DIAGNOSTIC_SESSION,
	READ_DATA_BY_LOCAL_IDENTIFIER,
	READ_DATA_BY_COMMON_IDENTIFIER,
	READ_MEMORY_BY_ADDRESS,
	STOP_REPEATED_DATA_TRANSMISSION,
	SET_DATA_RATES,
	SECURITY_ACCESS,
	DYNAMICALLY_DEFINE_LOCAL_IDENTIFIER,
	WRITE_DATA_BY_COMMON_IDENTIFIER,
	INPUT_OUTPUT_CONTROL_BY_COMMON_IDENTIFIER,
	INPUT_OUTPUT_CONTROL_BY_LOCAL_IDENTIFIER,
	START_ROUTINE_BY_LOCAL_IDENTIFIER,
	STOP_ROUTINE_BY_LOCAL_IDENTIFIER,
	REQUEST_ROUTINE_RESULTS_BY_LOCAL_IDENTIFIER,
	REQUEST_DOWNLOAD,
	REQUEST_UPLOAD,
	TRANSFER_DATA,
	REQUEST_TRANSFER_EXIT,
	START_ROUTINE_BY_ADDRESS,
	STOP_ROUTINE_BY_ADDRESS,
	REQUEST_ROUTINE_RESULTS_BY_ADDRESS,
	WRITE_DATA_BY_LOCAL_IDENTIFIER,
	WRITE_MEMORY_BY_ADDRESS,
	TESTER_PRESENT,
	START_COMMUNICATION,
	STOP_COMMUNICATION,
	ACCESS_TIMING_PARAMETERS,
	CONTROL_DTC_SETTINGS,
	RESPONSE_ON_EVENT,
}

var serviceInfos = map[Service]serviceInfo{
	START_DIAGNOSTIC_SESSION:                    {"StartDiagnosticSession", "Tells the ECU to enter a different diagnostic session mode", protocols.CautionWarn},
	ECU_RESET:                                   {"ECUReset", "Resets the ECU", protocols.CautionAlert},
	READ_FREEZE_FRAME_DATA:                      {"ReadFreezeFrameData", "Reads the freeze frame stored with a DTC", protocols.CautionNone},
	READ_DIAGNOSTIC_TROUBLE_CODES:               {"ReadDiagnosticTroubleCodes", "Reads DTCs stored on the ECU", protocols.CautionNone},
	CLEAR_DIAGNOSTIC_INFORMATION:                {"ClearDiagnosticInformation", "Clears DTCs stored on the ECU", protocols.CautionWarn},
	READ_STATUS_OF_DIAGNOSTIC_TROUBLE_CODES:     {"ReadStatusOfDiagnosticTroubleCodes", "Reads status and environment data of a DTC", protocols.CautionNone},
	READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS:     {"ReadDiagnosticTroubleCodesByStatus", "Reads DTCs matching a status", protocols.CautionNone},
	READ_ECU_IDENTIFICATION:                     {"ReadECUIdentification", "Reads identification data from the ECU", protocols.CautionNone},
	STOP_DIAGNOSTIC_SESSION:                     {"StopDiagnosticSession", "Tells the ECU to leave the diagnostic session", protocols.CautionWarn},
	READ_DATA_BY_LOCAL_IDENTIFIER:               {"ReadDataByLocalIdentifier", "Reads a record by its local identifier", protocols.CautionNone},
	READ_DATA_BY_COMMON_IDENTIFIER:              {"ReadDataByCommonIdentifier", "Reads a record by its common identifier", protocols.CautionNone},
	READ_MEMORY_BY_ADDRESS:                      {"ReadMemoryByAddress", "Reads a block of ECU memory", protocols.CautionNone},
	STOP_REPEATED_DATA_TRANSMISSION:             {"StopRepeatedDataTransmission", "Stops a repeated data transmission", protocols.CautionNone},
	SET_DATA_RATES:                              {"SetDataRates", "Changes repeated transmission rates", protocols.CautionWarn},
	SECURITY_ACCESS:                             {"SecurityAccess", "Requests seed or sends key to unlock the ECU", protocols.CautionWarn},
	DYNAMICALLY_DEFINE_LOCAL_IDENTIFIER:         {"DynamicallyDefineLocalIdentifier", "Defines a local identifier at runtime", protocols.CautionWarn},
	WRITE_DATA_BY_COMMON_IDENTIFIER:             {"WriteDataByCommonIdentifier", "Writes a record by its common identifier", protocols.CautionAlert},
	INPUT_OUTPUT_CONTROL_BY_COMMON_IDENTIFIER:   {"InputOutputControlByCommonIdentifier", "Overrides an ECU input or output", protocols.CautionAlert},
	INPUT_OUTPUT_CONTROL_BY_LOCAL_IDENTIFIER:    {"InputOutputControlByLocalIdentifier", "Overrides an ECU input or output", protocols.CautionAlert},
	START_ROUTINE_BY_LOCAL_IDENTIFIER:           {"StartRoutineByLocalIdentifier", "Starts a routine on the ECU", protocols.CautionAlert},
	STOP_ROUTINE_BY_LOCAL_IDENTIFIER:            {"StopRoutineByLocalIdentifier", "Stops a routine on the ECU", protocols.CautionAlert},
	REQUEST_ROUTINE_RESULTS_BY_LOCAL_IDENTIFIER: {"RequestRoutineResultsByLocalIdentifier", "Reads the result of a routine", protocols.CautionNone},
	REQUEST_DOWNLOAD:                            {"RequestDownload", "Starts a download (PC -> ECU)", protocols.CautionAlert},
	REQUEST_UPLOAD:                              {"RequestUpload", "Starts an upload (ECU -> PC)", protocols.CautionWarn},
	TRANSFER_DATA:                               {"TransferData", "Transfers a data block", protocols.CautionAlert},
	REQUEST_TRANSFER_EXIT:                       {"RequestTransferExit", "Ends a data transfer", protocols.CautionWarn},
	START_ROUTINE_BY_ADDRESS:                    {"StartRoutineByAddress", "Starts a routine at a memory address", protocols.CautionAlert},
	STOP_ROUTINE_BY_ADDRESS:                     {"StopRoutineByAddress", "Stops a routine at a memory address", protocols.CautionAlert},
	REQUEST_ROUTINE_RESULTS_BY_ADDRESS:          {"RequestRoutineResultsByAddress", "Reads the result of a routine at a memory address", protocols.CautionNone},
	WRITE_DATA_BY_LOCAL_IDENTIFIER:              {"WriteDataByLocalIdentifier", "Writes a record by its local identifier", protocols.CautionAlert},
	WRITE_MEMORY_BY_ADDRESS:                     {"WriteMemoryByAddress", "Writes a block of ECU memory", protocols.CautionAlert},
	TESTER_PRESENT:                              {"TesterPresent", "Keeps the diagnostic session alive", protocols.CautionNone},
	START_COMMUNICATION:                         {"StartCommunication", "Starts communication on K-Line", protocols.CautionWarn},
	STOP_COMMUNICATION:                          {"StopCommunication", "Stops communication on K-Line", protocols.CautionWarn},
	ACCESS_TIMING_PARAMETERS:                    {"AccessTimingParameters", "Reads or changes communication timing", protocols.CautionWarn},
	CONTROL_DTC_SETTINGS:                        {"ControlDTCSettings", "Enables or disables DTC storage", protocols.CautionWarn},
	RESPONSE_ON_EVENT:                           {"ResponseOnEvent", "Requests the ECU to respond on an event", protocols.CautionWarn},
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

// CautionLevel of unknown services is Alert.
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

// Commands returns the full KWP2000 service set.
func Commands() []protocols.ECUCommand {
	out := make([]protocols.ECUCommand, len(services))
	for i, s := range services {
		out[i] = s
	}
	return out
}
