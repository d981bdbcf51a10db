package handler

const errTokenInvalid = "Token is invalid or expired"
