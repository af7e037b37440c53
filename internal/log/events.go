package log

// Event names are used as log messages so that log processors can filter
// harvest progress without parsing free text.
const (
	// EventRunStart is logged when a site run begins.
	EventRunStart = "harvest_run_start"
	// EventRunEnd is logged when a site run ends, canceled or not.
	EventRunEnd = "harvest_run_end"
	// EventURLFetched is logged for every successful fetch.
	EventURLFetched = "harvest_url_fetched"
	// EventURLFailed is logged when a URL cannot be fetched or stored.
	EventURLFailed = "harvest_url_failed"
	// EventParseFailed is logged when a fetched product page does not yield a
	// valid record.
	EventParseFailed = "harvest_parse_failed"
	// EventRecordStored is logged when a record reaches the store.
	EventRecordStored = "harvest_record_stored"
)
