package uds

import (
	"fmt"

	"github.com/roffe/txdiag/pkg/protocols"
)

// Negative response codes, ISO 14229-1 annex A.
const (
	NRC_GENERAL_REJECT                                 = 0x10
	NRC_SERVICE_NOT_SUPPORTED                          = 0x11
	NRC_SUB_FUNCTION_NOT_SUPPORTED                     = 0x12
	NRC_INCORRECT_MESSAGE_LENGTH_OR_INVALID_FORMAT     = 0x13
	NRC_RESPONSE_TOO_LONG                              = 0x14
	NRC_BUSY_REPEAT_REQUEST                            = 0x21
	NRC_CONDITIONS_NOT_CORRECT                         = 0x22
	NRC_REQUEST_SEQUENCE_ERROR                         = 0x24
	NRC_NO_RESPONSE_FROM_SUBNET_COMPONENT              = 0x25
	NRC_FAILURE_PREVENTS_EXECUTION_OF_REQUESTED_ACTION = 0x26
	NRC_REQUEST_OUT_OF_RANGE                           = 0x31
	NRC_SECURITY_ACCESS_DENIED                         = 0x33
	NRC_INVALID_KEY                                    = 0x35
	NRC_EXCEEDED_NUMBER_OF_ATTEMPTS                    = 0x36
	NRC_REQUIRED_TIME_DELAY_NOT_EXPIRED                = 0x37
	NRC_UPLOAD_DOWNLOAD_NOT_ACCEPTED                   = 0x70
	NRC_TRANSFER_DATA_SUSPENDED                        = 0x71
	NRC_GENERAL_PROGRAMMING_FAILURE                    = 0x72
	NRC_WRONG_BLOCK_SEQUENCE_COUNTER                   = 0x73
	NRC_REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING    = 0x78
	NRC_SUB_FUNCTION_NOT_SUPPORTED_IN_ACTIVE_SESSION   = 0x7E
	NRC_SERVICE_NOT_SUPPORTED_IN_ACTIVE_SESSION        = 0x7F
	NRC_RPM_TOO_HIGH                                   = 0x81
	NRC_RPM_TOO_LOW                                    = 0x82
	NRC_ENGINE_IS_RUNNING                              = 0x83
	NRC_ENGINE_IS_NOT_RUNNING                          = 0x84
	NRC_ENGINE_RUN_TIME_TOO_LOW                        = 0x85
	NRC_TEMPERATURE_TOO_HIGH                           = 0x86
	NRC_TEMPERATURE_TOO_LOW                            = 0x87
	NRC_VEHICLE_SPEED_TOO_HIGH                         = 0x88
	NRC_VEHICLE_SPEED_TOO_LOW                          = 0x89
	NRC_THROTTLE_PEDAL_TOO_HIGH                        = 0x8A
	NRC_THROTTLE_PEDAL_TOO_LOW                         = 0x8B
	NRC_TRANSMISSION_RANGE_NOT_IN_NEUTRAL              = 0x8C
	NRC_TRANSMISSION_RANGE_NOT_IN_GEAR                 = 0x8D
	NRC_BRAKE_SWITCHES_NOT_CLOSED                      = 0x8F
	NRC_SHIFTER_LEVER_NOT_IN_PARK                      = 0x90
	NRC_TORQUE_CONVERTER_CLUTCH_LOCKED                 = 0x91
	NRC_VOLTAGE_TOO_HIGH                               = 0x92
	NRC_VOLTAGE_TOO_LOW                                = 0x93
)

type nrcInfo struct {
	desc string
	help string
}

var nrcTable = map[byte]nrcInfo{
	NRC_GENERAL_REJECT:                                 {"General reject", ""},
	NRC_SERVICE_NOT_SUPPORTED:                          {"Service not supported", "The ECU does not implement this service"},
	NRC_SUB_FUNCTION_NOT_SUPPORTED:                     {"Sub-function not supported", "Check the sub-function byte sent with the command"},
	NRC_INCORRECT_MESSAGE_LENGTH_OR_INVALID_FORMAT:     {"Incorrect message length or invalid format", "Check the number of arguments sent with the command"},
	NRC_RESPONSE_TOO_LONG:                              {"Response too long", ""},
	NRC_BUSY_REPEAT_REQUEST:                            {"Busy, repeat request", "The ECU is busy, try again shortly"},
	NRC_CONDITIONS_NOT_CORRECT:                         {"Conditions not correct", "The ECU is not in the correct state to run this command"},
	NRC_REQUEST_SEQUENCE_ERROR:                         {"Request sequence error", "Another command has to be run first"},
	NRC_NO_RESPONSE_FROM_SUBNET_COMPONENT:              {"No response from sub-net component", ""},
	NRC_FAILURE_PREVENTS_EXECUTION_OF_REQUESTED_ACTION: {"Failure prevents execution of requested action", "Read the DTCs of the ECU"},
	NRC_REQUEST_OUT_OF_RANGE:                           {"Request out of range", "Check the identifier or address requested"},
	NRC_SECURITY_ACCESS_DENIED:                         {"Security access denied", "Unlock the ECU with security access first"},
	NRC_INVALID_KEY:                                    {"Invalid key", ""},
	NRC_EXCEEDED_NUMBER_OF_ATTEMPTS:                    {"Exceeded number of attempts", "Wait for the lockout delay and power cycle the ECU"},
	NRC_REQUIRED_TIME_DELAY_NOT_EXPIRED:                {"Required time delay not expired", "Wait before requesting security access again"},
	NRC_UPLOAD_DOWNLOAD_NOT_ACCEPTED:                   {"Upload/download not accepted", ""},
	NRC_TRANSFER_DATA_SUSPENDED:                        {"Transfer data suspended", ""},
	NRC_GENERAL_PROGRAMMING_FAILURE:                    {"General programming failure", ""},
	NRC_WRONG_BLOCK_SEQUENCE_COUNTER:                   {"Wrong block sequence counter", ""},
	NRC_REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING:    {"Request correctly received, response pending", "The ECU did not finish processing the request in time"},
	NRC_SUB_FUNCTION_NOT_SUPPORTED_IN_ACTIVE_SESSION:   {"Sub-function not supported in active session", "Switch the ECU into another diagnostic session first"},
	NRC_SERVICE_NOT_SUPPORTED_IN_ACTIVE_SESSION:        {"Service not supported in active session", "Switch the ECU into another diagnostic session first"},
	NRC_RPM_TOO_HIGH:                                   {"RPM too high", ""},
	NRC_RPM_TOO_LOW:                                    {"RPM too low", ""},
	NRC_ENGINE_IS_RUNNING:                              {"Engine is running", "Turn the engine off"},
	NRC_ENGINE_IS_NOT_RUNNING:                          {"Engine is not running", "Start the engine"},
	NRC_ENGINE_RUN_TIME_TOO_LOW:                        {"Engine run time too low", ""},
	NRC_TEMPERATURE_TOO_HIGH:                           {"Temperature too high", ""},
	NRC_TEMPERATURE_TOO_LOW:                            {"Temperature too low", ""},
	NRC_VEHICLE_SPEED_TOO_HIGH:                         {"Vehicle speed too high", "Stop the vehicle"},
	NRC_VEHICLE_SPEED_TOO_LOW:                          {"Vehicle speed too low", ""},
	NRC_THROTTLE_PEDAL_TOO_HIGH:                        {"Throttle/pedal too high", ""},
	NRC_THROTTLE_PEDAL_TOO_LOW:                         {"Throttle/pedal too low", ""},
	NRC_TRANSMISSION_RANGE_NOT_IN_NEUTRAL:              {"Transmission range not in neutral", ""},
	NRC_TRANSMISSION_RANGE_NOT_IN_GEAR:                 {"Transmission range not in gear", ""},
	NRC_BRAKE_SWITCHES_NOT_CLOSED:                      {"Brake switch(es) not closed", "Press the brake pedal"},
	NRC_SHIFTER_LEVER_NOT_IN_PARK:                      {"Shifter lever not in park", ""},
	NRC_TORQUE_CONVERTER_CLUTCH_LOCKED:                 {"Torque converter clutch locked", ""},
	NRC_VOLTAGE_TOO_HIGH:                               {"Voltage too high", ""},
	NRC_VOLTAGE_TOO_LOW:                                {"Voltage too low", "Check the battery"},
}

// UDSError is a decoded UDS negative response code.
type UDSError struct {
	Code byte
	Msg  string
	Hint string
}

// DecodeNRC never fails, unknown and manufacturer specific codes get a
// generic description.
func DecodeNRC(b byte) protocols.CommandError {
	if info, ok := nrcTable[b]; ok {
		return &UDSError{Code: b, Msg: info.desc, Hint: info.help}
	}
	if b >= 0xF0 && b <= 0xFE {
		return &UDSError{Code: b, Msg: fmt.Sprintf("Vehicle manufacturer specific condition 0x%02X", b)}
	}
	return &UDSError{Code: b, Msg: fmt.Sprintf("Unknown error 0x%02X", b)}
}

func (u *UDSError) Byte() byte {
	return u.Code
}

func (u *UDSError) Desc() string {
	return u.Msg
}

func (u *UDSError) Help() (string, bool) {
	return u.Hint, u.Hint != ""
}

func (u *UDSError) Error() string {
	return fmt.Sprintf("%s (0x%02X)", u.Msg, u.Code)
}
