package scheduler

// LogMsgRunSkipped is logged when the worker queue is full at tick time
const LogMsgRunSkipped = "Scheduled run skipped, worker queue full"
