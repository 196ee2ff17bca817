package constants

import "time"

// main loop
const PollInterval = 5 * time.Millisecond
const DiscoveryReadWindow = time.Millisecond

// network defaults
const DefaultHTTPPort = 80
const DiscoveryGroup = "239.255.255.250:1900"
const DiscoveryBufferSize = 2048

// emulated bridge
const DefaultUsername = "userid"
const UniqueIDPrefix = "00:00"
const UPnPUUIDPrefix = "2f402f80-da50-11e1-9b23-"
const BridgeModelID = "BSB002"
const MDNSService = "_hue._tcp"
const MDNSDomain = "local."

// device defaults
const DefaultBrightness = 254
const DefaultColorTemperature = 153

// hue api error types
const ErrorTypeResourceNotAvailable = 3
const ErrorTypeMethodNotAvailable = 4
const ErrorTypeInvalidParameters = 5

const ErrorDescriptionResourceNotAvailable = "resource not available"
const ErrorDescriptionInvalidParameters = "invalid/missing parameters in body"

// light state body fields
const FieldOn = "on"
const FieldBrightness = "bri"
const FieldHue = "hue"
const FieldSaturation = "sat"
const FieldColorTemperature = "ct"
const FieldXY = "xy"
const FieldDeviceType = "devicetype"
