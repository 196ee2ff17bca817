package hue

import (
	"bytes"
	"text/template"

	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/network"
)

var descriptionTemplate = template.Must(template.New("description.xml").Parse(`<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion><major>1</major><minor>0</minor></specVersion>
<URLBase>http://{{.IP}}:{{.Port}}/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>Philips hue ({{.IP}}:{{.Port}})</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2012</modelName>
<modelNumber>929000226503</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>{{.BridgeID}}</serialNumber>
<UDN>uuid:{{.UUIDPrefix}}{{.BridgeID}}</UDN>
<presentationURL>index.html</presentationURL>
</device>
</root>
`))

type descriptionData struct {
	IP         string
	Port       int
	BridgeID   string
	UUIDPrefix string
}

func renderDescription(facts network.Facts, port int) ([]byte, error) {
	var buf bytes.Buffer
	err := descriptionTemplate.Execute(&buf, descriptionData{
		IP:         facts.HostIP(),
		Port:       port,
		BridgeID:   facts.BridgeID(),
		UUIDPrefix: constants.UPnPUUIDPrefix,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
